package instrument

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestBuildMaskKeysAlwaysCoversCodes(t *testing.T) {
	// Arrange: empty config must still redact verification codes.
	keys := buildMaskKeys(nil)

	// Assert
	for _, want := range []string{"code", "otp", "password"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("buildMaskKeys(nil) missing baseline key %q", want)
		}
	}

	keys = buildMaskKeys([]string{" Email ", ""})
	if _, ok := keys["email"]; !ok {
		t.Error("buildMaskKeys should lowercase and trim configured fields")
	}
}

func TestMaskAttrRedactsDirectKey(t *testing.T) {
	keys := buildMaskKeys(nil)

	got := maskAttr(slog.String("code", "123456"), keys)

	if got.Value.String() != "***" {
		t.Fatalf("masked value = %q, want ***", got.Value.String())
	}
	if got.Key != "code" {
		t.Fatalf("masked key = %q, want code", got.Key)
	}
}

func TestMaskAttrRedactsJSONBody(t *testing.T) {
	keys := buildMaskKeys(nil)
	body := `{"email":"a@b.dev","code":"987654","nested":{"otp":"111111"}}`

	got := maskAttr(slog.String("body", body), keys)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got.Value.String()), &decoded); err != nil {
		t.Fatalf("masked body is not JSON: %v", err)
	}
	if decoded["code"] != "***" {
		t.Errorf("code = %v, want ***", decoded["code"])
	}
	if decoded["email"] != "a@b.dev" {
		t.Errorf("email = %v, want untouched", decoded["email"])
	}
	nested, _ := decoded["nested"].(map[string]any)
	if nested["otp"] != "***" {
		t.Errorf("nested otp = %v, want ***", nested["otp"])
	}
}

func TestMaskAttrRedactsGroupsAndMaps(t *testing.T) {
	keys := buildMaskKeys(nil)

	group := maskAttr(slog.Group("req", slog.String("code", "222222"), slog.String("path", "/v1")), keys)
	found := false
	for _, a := range group.Value.Group() {
		if a.Key == "code" {
			found = true
			if a.Value.String() != "***" {
				t.Errorf("group code = %q, want ***", a.Value.String())
			}
		}
	}
	if !found {
		t.Fatal("group lost its code attribute")
	}

	anyAttr := maskAttr(slog.Any("data", map[string]string{"code": "333333", "kind": "email"}), keys)
	data, ok := anyAttr.Value.Any().(map[string]any)
	if !ok {
		t.Fatalf("map attr mutated to %T", anyAttr.Value.Any())
	}
	if data["code"] != "***" || data["kind"] != "email" {
		t.Errorf("map masking = %v", data)
	}
}

func TestMaskAttrLeavesNonJSONStrings(t *testing.T) {
	keys := buildMaskKeys(nil)

	got := maskAttr(slog.String("note", "plain text, not json"), keys)

	if got.Value.String() != "plain text, not json" {
		t.Fatalf("plain string changed to %q", got.Value.String())
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := GetCorrelationID(ctx); got != "" {
		t.Fatalf("empty context correlation id = %q, want empty", got)
	}

	ctx = SetCorrelationID(ctx, "abc-123")
	if got := GetCorrelationID(ctx); got != "abc-123" {
		t.Fatalf("correlation id = %q, want abc-123", got)
	}

	bad := context.WithValue(context.Background(), correlationKey{}, 42)
	if got := GetCorrelationID(bad); !strings.Contains(got, "invalid") {
		t.Fatalf("non-string correlation id = %q, want invalid marker", got)
	}
}
