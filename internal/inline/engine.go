// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// regexpKeywords are the keywords after which a slash starts a regular
// expression literal rather than a division.
var regexpKeywords = []string{
	"await", "case", "delete", "do", "else", "in", "instanceof",
	"new", "of", "return", "throw", "typeof", "void", "yield",
}

type (
	// Transformer rewrites one source file. defines maps expressions such as
	// `process.env.FOO` to the literal source text that replaces them.
	// Implementations must be safe for concurrent use.
	Transformer interface {
		Transform(ctx context.Context, src []byte, filename string, defines map[string]string) ([]byte, error)
	}

	// SpliceTransformer is the default Transformer. It lexes the source,
	// replaces each `process.env.NAME` or `process.env["NAME"]` read that has
	// a define with the literal text, and copies every other byte through
	// unchanged: comments, blank lines and type annotations survive. The
	// result is parsed by esbuild with the loader for the file extension, so
	// a file that is not valid JavaScript or TypeScript fails instead of
	// being written.
	SpliceTransformer struct{}

	// token is one significant lexeme. [start, end) are byte offsets into the
	// source.
	token struct {
		kind  js.TokenType
		text  string
		start int
		end   int
	}

	// replacement swaps src[start:end] for literal.
	replacement struct {
		start   int
		end     int
		literal string
	}
)

// NewSpliceTransformer returns the default Transformer.
func NewSpliceTransformer() *SpliceTransformer {
	return &SpliceTransformer{}
}

// Transform implements Transformer.
func (t *SpliceTransformer) Transform(ctx context.Context, src []byte, filename string, defines map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens, err := lex(src)
	if err != nil {
		return nil, &EngineError{Messages: []string{fmt.Sprintf("%s: %v", filename, err)}}
	}
	out := splice(src, findReplacements(tokens, defines))

	result := api.Transform(string(out), api.TransformOptions{
		Loader:     LoaderFor(filename),
		Sourcefile: filename,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, &EngineError{Messages: formatMessages(result.Errors)}
	}
	return out, nil
}

// lex returns the significant tokens of src. Whitespace and comments are
// dropped; a leading hashbang line is skipped.
func lex(src []byte) ([]token, error) {
	offset := 0
	if bytes.HasPrefix(src, []byte("#!")) {
		offset = len(src)
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			offset = i
		}
	}

	l := js.NewLexer(parse.NewInputBytes(slices.Clip(src[offset:])))
	var tokens []token
	for {
		tt, text := l.Next()
		if tt == js.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return tokens, nil
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && regexpAllowed(tokens) {
			if tt, text = l.RegExp(); tt == js.ErrorToken {
				return nil, l.Err()
			}
		}

		start := offset
		offset += len(text)
		switch tt {
		case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
			continue
		}
		tokens = append(tokens, token{kind: tt, text: string(text), start: start, end: offset})
	}
}

// regexpAllowed reports whether a slash following tokens opens a regular
// expression, i.e. the previous token cannot end an expression.
func regexpAllowed(tokens []token) bool {
	if len(tokens) == 0 {
		return true
	}
	prev := tokens[len(tokens)-1]
	if prev.kind == js.StringToken || prev.kind == js.RegExpToken {
		return false
	}

	text := prev.text
	switch {
	case identPattern.MatchString(text):
		return slices.Contains(regexpKeywords, text)
	case isNumber(text), text == "++", text == "--", strings.HasPrefix(text, "#"):
		return false
	}
	switch text[len(text)-1] {
	case ')', ']', '}', '`':
		return false
	}
	return true
}

func isNumber(text string) bool {
	c := text[0]
	if c >= '0' && c <= '9' {
		return true
	}
	return c == '.' && len(text) > 1 && text[1] >= '0' && text[1] <= '9'
}

// findReplacements locates the env reads that have a define. Reads that are
// written to, incremented or deleted are left alone.
func findReplacements(tokens []token, defines map[string]string) []replacement {
	var edits []replacement
	for i := 0; i < len(tokens); i++ {
		name, next, ok := envMember(tokens, i)
		if !ok {
			continue
		}
		literal, defined := defines[envObject+"."+name]
		if defined && !isWriteTarget(tokens, i, next) {
			edits = append(edits, replacement{start: tokens[i].start, end: tokens[next-1].end, literal: literal})
		}
		i = next - 1
	}
	return edits
}

// envMember matches `process.env.NAME` or `process.env["NAME"]` starting at
// tokens[i]. next is the index of the first token after the expression.
func envMember(tokens []token, i int) (name string, next int, ok bool) {
	at := func(j int) string {
		if j < len(tokens) {
			return tokens[j].text
		}
		return ""
	}

	if at(i) != "process" || at(i+1) != "." || at(i+2) != "env" {
		return "", 0, false
	}
	if i > 0 && (tokens[i-1].text == "." || tokens[i-1].text == "?.") {
		return "", 0, false
	}

	switch at(i + 3) {
	case ".":
		if name := at(i + 4); identPattern.MatchString(name) {
			return name, i + 5, true
		}
	case "[":
		if i+4 < len(tokens) && tokens[i+4].kind == js.StringToken && at(i+5) == "]" {
			if name, ok := unquote(tokens[i+4].text); ok {
				return name, i + 6, true
			}
		}
	}
	return "", 0, false
}

// unquote strips the quotes of a string literal without escapes.
func unquote(lit string) (string, bool) {
	if len(lit) < 2 || strings.ContainsRune(lit, '\\') {
		return "", false
	}
	return lit[1 : len(lit)-1], true
}

// isWriteTarget reports whether the member expression tokens[i:next] is
// assigned, updated or deleted.
func isWriteTarget(tokens []token, i, next int) bool {
	if i > 0 {
		switch tokens[i-1].text {
		case "++", "--", "delete":
			return true
		}
	}
	if next >= len(tokens) {
		return false
	}

	op := tokens[next].text
	switch op {
	case "++", "--":
		return true
	case "==", "===", "!=", "!==", "<=", ">=":
		return false
	}
	return tokens[next].kind != js.StringToken && strings.HasSuffix(op, "=")
}

// splice applies edits, which must be ordered and non-overlapping. Line
// breaks inside a replaced expression are kept after its literal so line
// numbers do not move.
func splice(src []byte, edits []replacement) []byte {
	if len(edits) == 0 {
		return src
	}

	var out bytes.Buffer
	out.Grow(len(src))
	last := 0
	for _, e := range edits {
		out.Write(src[last:e.start])
		out.WriteString(e.literal)
		out.Write(bytes.Repeat([]byte("\n"), bytes.Count(src[e.start:e.end], []byte("\n"))))
		last = e.end
	}
	out.Write(src[last:])
	return out.Bytes()
}

// LoaderFor picks the esbuild loader used to check the output. Unknown
// extensions are parsed as plain JavaScript.
func LoaderFor(filename string) api.Loader {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jsx":
		return api.LoaderJSX
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location == nil {
			out = append(out, m.Text)
			continue
		}
		out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
	}
	return out
}
