package validation

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func ts(raw string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateInterval_Valid(t *testing.T) {
	for _, p := range [][2]string{
		{"2014-08-04 09:30", "2014-08-04 12:30"},
		{"2014-08-04 00:00", "2014-08-04 23:59"},
		{"2014-08-04 23:00", "2014-08-04 23:30"},
	} {
		if errs := ValidateInterval(ts(p[0]), ts(p[1])); errs.Err() != nil {
			t.Fatalf("expected %v valid, got %v", p, errs)
		}
	}
}

func TestValidateInterval_StartEqualsEnd(t *testing.T) {
	errs := ValidateInterval(ts("2014-08-04 09:30"), ts("2014-08-04 09:30"))
	if !reflect.DeepEqual(errs, Errors{FieldStart: {MsgBeforeEnd}}) {
		t.Fatalf("expected only a start error, got %v", errs)
	}
}

func TestValidateInterval_Misaligned(t *testing.T) {
	errs := ValidateInterval(ts("2014-08-04 09:20"), ts("2014-08-04 09:45"))
	want := Errors{FieldStart: {MsgAligned}, FieldEnd: {MsgAligned}}
	if !reflect.DeepEqual(errs, want) {
		t.Fatalf("expected %v, got %v", want, errs)
	}
}

func TestValidateInterval_EndMinute45OnlyAllowedAt2359(t *testing.T) {
	if errs := ValidateInterval(ts("2014-08-04 22:00"), ts("2014-08-04 23:45")); len(errs[FieldEnd]) != 1 {
		t.Fatalf("expected end error for 23:45, got %v", errs)
	}
	if errs := ValidateInterval(ts("2014-08-04 22:00"), ts("2014-08-04 22:59")); len(errs[FieldEnd]) != 1 {
		t.Fatalf("expected end error for 22:59, got %v", errs)
	}
}

func TestValidateInterval_CollectsEveryRule(t *testing.T) {
	// Backwards, misaligned and across weekdays at once.
	errs := ValidateInterval(ts("2014-08-05 10:10"), ts("2014-08-04 09:15"))
	want := Errors{
		FieldStart: {MsgBeforeEnd, MsgAligned},
		FieldEnd:   {MsgAligned, MsgSameWeekday},
	}
	if !reflect.DeepEqual(errs, want) {
		t.Fatalf("expected %v, got %v", want, errs)
	}

	var target Errors
	if !errors.As(errs.Err(), &target) {
		t.Fatal("expected Errors to be usable as an error")
	}
	if got := errs.Error(); got != "validation failed: end must be 30-minute aligned, must be same weekday as start; start must be before end, must be 30-minute aligned" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestValidateInterval_DifferentWeekday(t *testing.T) {
	errs := ValidateInterval(ts("2014-08-04 09:00"), ts("2014-08-05 10:00"))
	if !reflect.DeepEqual(errs, Errors{FieldEnd: {MsgSameWeekday}}) {
		t.Fatalf("expected weekday error, got %v", errs)
	}
}

func TestValidateInterval_RejectsStraySeconds(t *testing.T) {
	start := ts("2014-08-11 09:30").Add(15 * time.Second)
	errs := ValidateInterval(start, ts("2014-08-11 10:30"))
	if !reflect.DeepEqual(errs, Errors{FieldStart: {MsgAligned}}) {
		t.Fatalf("expected start alignment error, got %v", errs)
	}

	end := ts("2014-08-11 10:30").Add(time.Millisecond)
	if errs := ValidateInterval(ts("2014-08-11 09:30"), end); len(errs[FieldEnd]) != 1 {
		t.Fatalf("expected end alignment error, got %v", errs)
	}

	sentinel := ts("2014-08-11 23:59").Add(30 * time.Second)
	if errs := ValidateInterval(ts("2014-08-11 09:30"), sentinel); len(errs[FieldEnd]) != 1 {
		t.Fatalf("expected 23:59:30 to be rejected, got %v", errs)
	}
}
