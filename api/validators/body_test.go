package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
)

type itemBody struct {
	ProductID FlexibleID `json:"productId" validate:"required"`
	VariantID FlexibleID `json:"variantId" validate:"required"`
	Handle    string     `json:"handle" validate:"required,max=255"`
}

func decode(t *testing.T, body string) (itemBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest itemBody
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func TestDecodeJSONBodyAcceptsNumericIDs(t *testing.T) {
	got, err := decode(t, `{"productId":100,"variantId":"200","handle":"shoe"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProductID != "100" || got.VariantID != "200" || got.Handle != "shoe" {
		t.Fatalf("unexpected decode %+v", got)
	}
}

func TestDecodeJSONBodyKeepsLargeIDsExact(t *testing.T) {
	got, err := decode(t, `{"productId":7982301773901,"variantId":43918125301837,"handle":"shoe"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VariantID != "43918125301837" {
		t.Fatalf("variant id lost precision: %s", got.VariantID)
	}
}

func TestDecodeJSONBodyReportsMissingFields(t *testing.T) {
	_, err := decode(t, `{"productId":100}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["variantId"] != "is required" || details["handle"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	for _, body := range []string{``, `{`, `{"productId":true,"variantId":1,"handle":"x"}`, `{"unknown":1}`} {
		if _, err := decode(t, body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("body %q: expected validation error, got %v", body, err)
		}
	}
}
