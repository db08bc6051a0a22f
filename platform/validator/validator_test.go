package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Status string `json:"status" validate:"required,oneofstatus"`
	Page   int    `form:"page" validate:"min=1"`
}

func TestStringRuleAndDetails(t *testing.T) {
	v := New()
	if err := v.RegisterStringRule("oneofstatus", func(s string) bool { return s == "new" || s == "dead" }); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := v.Struct(sample{Status: "new", Page: 1}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := v.Struct(sample{Status: "won", Page: 0})
	details := Details(err)
	if len(details) != 2 {
		t.Fatalf("expected two field errors, got %+v", details)
	}
	if details[0].Field != "status" || details[0].Rule != "oneofstatus" {
		t.Fatalf("unexpected first error %+v", details[0])
	}
	if details[1].Field != "page" || details[1].Rule != "min" || details[1].Param != "1" {
		t.Fatalf("unexpected second error %+v", details[1])
	}
}

func TestDetailsIgnoresOtherErrors(t *testing.T) {
	if Details(errors.New("boom")) != nil {
		t.Fatal("expected nil details")
	}
}
