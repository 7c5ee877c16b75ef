package sqlgate

import "testing"

func TestIsReadOnly(t *testing.T) {
	cases := []struct {
		sql  string
		want bool
	}{
		{sql: "SELECT 1", want: true},
		{sql: "select provider_name from providers", want: true},
		{sql: "  (SELECT 1)", want: true},
		{sql: "((SELECT\n\t1))", want: true},
		{sql: "WITH t AS (SELECT 1) SELECT * FROM t", want: true},
		{sql: "(with t as (select 1) select * from t)", want: true},
		{sql: "\n\tSeLeCt provider_id FROM providers", want: true},
		{sql: "", want: false},
		{sql: "   ", want: false},
		{sql: "(((", want: false},
		{sql: "DELETE FROM x", want: false},
		{sql: "INSERT INTO providers VALUES ('x')", want: false},
		{sql: "UPDATE providers SET provider_name = 'x'", want: false},
		{sql: "DROP TABLE providers", want: false},
		{sql: "TRUNCATE ratings", want: false},
		{sql: "EXPLAIN SELECT 1", want: false},
		{sql: "(DELETE FROM providers)", want: false},
	}

	for _, tc := range cases {
		if got := IsReadOnly(tc.sql); got != tc.want {
			t.Fatalf("IsReadOnly(%q) = %v, want %v", tc.sql, got, tc.want)
		}
	}
}
