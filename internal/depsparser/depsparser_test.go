package depsparser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/forge/internal/depsparser"
)

type event struct {
	kind string
	name string
}

type recorder struct {
	events []event
	errors []string
}

func (r *recorder) RuleStart(name string) {
	r.events = append(r.events, event{"start", name})
}

func (r *recorder) RuleDependency(name string) {
	r.events = append(r.events, event{"dep", name})
}

func (r *recorder) RuleEnd() {
	r.events = append(r.events, event{"end", ""})
}

func (r *recorder) Error(message string, offset int) {
	r.errors = append(r.errors, message)
}

func parse(input string) *recorder {
	r := &recorder{}
	depsparser.Parse([]byte(input), r)
	return r
}

func TestParse_SimpleRule(t *testing.T) {
	r := parse("main.o: main.c header.h\n")

	assert.Empty(t, r.errors)
	assert.Equal(t, []event{
		{"start", "main.o"},
		{"dep", "main.c"},
		{"dep", "header.h"},
		{"end", ""},
	}, r.events)
}

func TestParse_Continuations(t *testing.T) {
	r := parse("main.o: main.c \\\n  header.h \\\n  other.h\n")

	assert.Empty(t, r.errors)
	assert.Equal(t, []event{
		{"start", "main.o"},
		{"dep", "main.c"},
		{"dep", "header.h"},
		{"dep", "other.h"},
		{"end", ""},
	}, r.events)
}

func TestParse_EscapedSpaces(t *testing.T) {
	r := parse(`main.o: some\ file.h` + "\n")

	assert.Empty(t, r.errors)
	assert.Equal(t, []event{
		{"start", "main.o"},
		{"dep", "some file.h"},
		{"end", ""},
	}, r.events)
}

func TestParse_MultipleRules(t *testing.T) {
	r := parse("a.o: a.c\nb.o: b.c\n")

	assert.Empty(t, r.errors)
	assert.Equal(t, []event{
		{"start", "a.o"},
		{"dep", "a.c"},
		{"end", ""},
		{"start", "b.o"},
		{"dep", "b.c"},
		{"end", ""},
	}, r.events)
}

func TestParse_MissingColon(t *testing.T) {
	r := parse("no-colon-here\n")

	assert.NotEmpty(t, r.errors)
	assert.Contains(t, r.errors[0], "missing ':'")
}

func TestParse_Empty(t *testing.T) {
	r := parse("")

	assert.Empty(t, r.errors)
	assert.Empty(t, r.events)
}

func TestParse_NoTrailingNewline(t *testing.T) {
	r := parse("main.o: main.c")

	assert.Empty(t, r.errors)
	assert.Equal(t, []event{
		{"start", "main.o"},
		{"dep", "main.c"},
		{"end", ""},
	}, r.events)
}
