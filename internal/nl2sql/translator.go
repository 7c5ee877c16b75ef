package nl2sql

import "context"

// Translator turns a natural language question into a single SQL
// statement. An empty SQL string with a nil error means the model
// declined to answer from the schema.
type Translator interface {
	Translate(ctx context.Context, question string) (string, error)
}

// AnswerGenerator produces a natural language answer grounded strictly
// in the rows a query returned.
type AnswerGenerator interface {
	Answer(ctx context.Context, question, sql string, rows []map[string]any) (string, error)
}
