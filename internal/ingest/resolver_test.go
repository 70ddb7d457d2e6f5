package ingest

import (
	"testing"

	"courier_platform/internal/domain"
)

func TestScoreCandidate(t *testing.T) {
	row := Row{
		FirstName:  "Ivan",
		LastName:   "Petrov",
		TargetCity: "Moscow",
		Phone:      "+7 900 123-45-67",
	}

	cases := []struct {
		name    string
		courier domain.Courier
		want    int
	}{
		{
			name:    "full match",
			courier: domain.Courier{FullName: "Ivan Petrov", City: "Moscow", Phone: "89001234567"},
			want:    100,
		},
		{
			name:    "reversed name counts as exact",
			courier: domain.Courier{FullName: "Petrov Ivan", City: "Moscow", Phone: "89001234567"},
			want:    100,
		},
		{
			name:    "name and city only",
			courier: domain.Courier{FullName: "Ivan Petrov", City: "Moscow", Phone: "89000000000"},
			want:    75,
		},
		{
			name:    "half the name tokens",
			courier: domain.Courier{FullName: "Ivan Smirnov", City: "Kazan", Phone: ""},
			want:    25,
		},
		{
			name:    "nothing matches",
			courier: domain.Courier{FullName: "Olga Kuznetsova", City: "Kazan", Phone: "81112223344"},
			want:    0,
		},
	}

	for _, tc := range cases {
		if got := ScoreCandidate(row, &tc.courier); got != tc.want {
			t.Fatalf("%s: score = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestNameTokens(t *testing.T) {
	tokens := nameTokens("Ivan de Petrov")
	if len(tokens) != 2 || tokens[0] != "ivan" || tokens[1] != "petrov" {
		t.Fatalf("tokens = %v, want [ivan petrov]", tokens)
	}
	if got := nameTokens("a b"); got != nil {
		t.Fatalf("short fragments must be dropped, got %v", got)
	}
}

func TestAnyTokenMatch(t *testing.T) {
	tokens := nameTokens("Ivan Petrov")
	if !anyTokenMatch(tokens, "PETROVA Anna") {
		t.Fatal("substring token should match")
	}
	if anyTokenMatch(tokens, "Olga Kuznetsova") {
		t.Fatal("unrelated name should not match")
	}
}
