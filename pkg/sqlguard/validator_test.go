package sqlguard

import (
	"errors"
	"testing"
)

func TestValidateReadOnly_Select(t *testing.T) {
	normalized, err := ValidateReadOnly("SELECT * FROM orders;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalized != "SELECT * FROM orders" {
		t.Errorf("expected trailing semicolon stripped, got %q", normalized)
	}
}

func TestValidateReadOnly_CTE(t *testing.T) {
	if _, err := ValidateReadOnly("WITH recent AS (SELECT 1) SELECT * FROM recent"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReadOnly_LowercaseSelect(t *testing.T) {
	if _, err := ValidateReadOnly("select count(*) from users"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReadOnly_RejectsDML(t *testing.T) {
	for _, q := range []string{
		"DELETE FROM orders",
		"UPDATE users SET name = 'x'",
		"INSERT INTO t VALUES (1)",
		"DROP TABLE users",
		"TRUNCATE orders",
	} {
		if _, err := ValidateReadOnly(q); !errors.Is(err, ErrNotReadOnly) {
			t.Errorf("%q: expected ErrNotReadOnly, got %v", q, err)
		}
	}
}

func TestValidateReadOnly_RejectsStackedStatements(t *testing.T) {
	_, err := ValidateReadOnly("SELECT 1; DROP TABLE users")
	if !errors.Is(err, ErrMultipleStatements) {
		t.Errorf("expected ErrMultipleStatements, got %v", err)
	}
}

func TestValidateReadOnly_SemicolonInsideStringAllowed(t *testing.T) {
	if _, err := ValidateReadOnly("SELECT 'a;b' AS v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReadOnly_LeadingComment(t *testing.T) {
	if _, err := ValidateReadOnly("-- monthly revenue\nSELECT sum(total) FROM orders"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReadOnly_Empty(t *testing.T) {
	if _, err := ValidateReadOnly("   "); err == nil {
		t.Fatal("expected error for empty statement")
	}
}

func TestCheckAllParameters(t *testing.T) {
	results := CheckAllParameters([]any{"12345", 42, true})
	if len(results) != 0 {
		t.Errorf("expected clean parameters, got %v", results)
	}

	results = CheckAllParameters([]any{"' OR '1'='1"})
	if len(results) != 1 {
		t.Fatalf("expected one injection hit, got %d", len(results))
	}
	if !results[0].IsSQLi || results[0].ParamIndex != 0 {
		t.Errorf("unexpected result: %+v", results[0])
	}
}
