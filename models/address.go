package models

type Address struct {
	FirstName  string `bson:"firstName" json:"firstName"`
	LastName   string `bson:"lastName" json:"lastName"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2" json:"line2"`
	City       string `bson:"city" json:"city"`
	Province   string `bson:"province" json:"province"`
	Country    string `bson:"country" json:"country"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
}

// missing lists the required address fields that are blank, prefixed with
// what the address is for ("Billing address", "Shipping address").
func (a Address) missing(prefix string) []string {
	var messages []string
	fields := []struct {
		label string
		value string
	}{
		{"first name", a.FirstName},
		{"last name", a.LastName},
		{"line 1", a.Line1},
		{"city", a.City},
		{"province", a.Province},
		{"country", a.Country},
		{"postal code", a.PostalCode},
	}
	for _, f := range fields {
		if f.value == "" {
			messages = append(messages, formatError(prefix+" "+f.label, "is required."))
		}
	}
	return messages
}
