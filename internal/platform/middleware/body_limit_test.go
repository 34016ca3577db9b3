package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func postWithBody(t *testing.T, mw echo.MiddlewareFunc, body string, declareLength bool) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if !declareLength {
		req.ContentLength = -1
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		// Drain like a real handler binding the body
		if _, err := io.ReadAll(c.Request().Body); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	return handler(c)
}

func TestBodyLimit_SmallBodyPasses(t *testing.T) {
	mw := BodyLimit("1K")
	if err := postWithBody(t, mw, `{"medicalRecord":"MR-1"}`, true); err != nil {
		t.Fatalf("expected small body to pass, got %v", err)
	}
}

func TestBodyLimit_DeclaredLengthRejectedEarly(t *testing.T) {
	mw := BodyLimit("16")
	err := postWithBody(t, mw, strings.Repeat("x", 64), true)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_UndeclaredLengthStillCapped(t *testing.T) {
	mw := BodyLimit("16")
	err := postWithBody(t, mw, strings.Repeat("x", 64), false)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 from capped reader, got %v", err)
	}
}

func TestParseBodyLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1M", 1 << 20},
		{"64K", 64 << 10},
		{"512", 512},
		{"", 1 << 20},
		{"garbage", 1 << 20},
		{"-5", 1 << 20},
	}
	for _, tc := range cases {
		if got := parseBodyLimit(tc.in); got != tc.want {
			t.Errorf("parseBodyLimit(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
