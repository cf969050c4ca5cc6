package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/metrics"
	"github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

const requestTimeout = 10 * time.Second

const msgServerError = "Something went wrong. Please try again."

// Handler serves the storefront pages.
type Handler struct {
	models *models.Models
}

func New(m *models.Models) *Handler {
	return &Handler{models: m}
}

// Page is the data passed to every template.
type Page struct {
	Title     string
	User      *models.User
	CartCount int
	Flashes   map[string][]string
	Data      echo.Map
}

func (h *Handler) render(c echo.Context, name, title string, data echo.Map) error {
	s := session.Get(c)
	return c.Render(http.StatusOK, name, Page{
		Title:     title,
		User:      middleware.CurrentUser(c),
		CartCount: s.Data.CartCount,
		Flashes:   s.Flashes(),
		Data:      data,
	})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func flash(c echo.Context, kind, message string) {
	session.Get(c).AddFlash(kind, message)
}

func redirect(c echo.Context, path string) error {
	return c.Redirect(http.StatusFound, path)
}

// fail reports err to the user and redirects to path. Validation messages
// are shown as-is, missing documents get a not-found message and anything
// else is logged.
func fail(c echo.Context, err error, path string) error {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		flash(c, session.FlashError, ve.Error())
	case models.IsNotFound(err):
		flash(c, session.FlashError, "That record could not be found.")
	case errors.Is(err, models.ErrCartConflict):
		metrics.RecordCartConflict()
		flash(c, session.FlashError, "Your cart changed while saving. Please try again.")
	default:
		log.WithError(err).
			WithField("method", c.Request().Method).
			WithField("path", c.Request().URL.Path).
			Error("Request failed")
		flash(c, session.FlashError, msgServerError)
	}
	return redirect(c, path)
}

// indexedValues collects name[0], name[1], ... (or repeated name / name[])
// in index order.
func indexedValues(values url.Values, name string) []string {
	type entry struct {
		index int
		value string
	}
	var entries []entry
	var plain []string
	for key, vs := range values {
		switch {
		case key == name || key == name+"[]":
			plain = append(plain, vs...)
		case strings.HasPrefix(key, name+"[") && strings.HasSuffix(key, "]"):
			i, err := strconv.Atoi(key[len(name)+1 : len(key)-1])
			if err != nil {
				continue
			}
			for _, v := range vs {
				entries = append(entries, entry{i, v})
			}
		}
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	out := plain
	for _, e := range entries {
		out = append(out, e.value)
	}
	return out
}

// indexedRows collects name[i][field] form keys into one map per row, in
// index order.
func indexedRows(values url.Values, name string) []map[string]string {
	rows := map[int]map[string]string{}
	prefix := name + "["
	for key, vs := range values {
		if !strings.HasPrefix(key, prefix) || len(vs) == 0 {
			continue
		}
		rest := key[len(prefix):]
		end := strings.Index(rest, "][")
		if end < 0 || !strings.HasSuffix(rest, "]") {
			continue
		}
		i, err := strconv.Atoi(rest[:end])
		if err != nil {
			continue
		}
		field := rest[end+2 : len(rest)-1]
		if rows[i] == nil {
			rows[i] = map[string]string{}
		}
		rows[i][field] = vs[len(vs)-1]
	}

	indexes := make([]int, 0, len(rows))
	for i := range rows {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]map[string]string, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, rows[i])
	}
	return out
}

func checked(v string) bool {
	return v == "on" || v == "true" || v == "1"
}
