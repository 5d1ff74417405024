// Package lint is the static check run before a bundle is built. It reports
// buttons declared without a label, which would otherwise render as empty
// controls.
package lint

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	buttonPath  = "/components/button"
	propsType   = "Props"
	labelField  = "Label"
	labelString = "a non-empty Label"
)

// Finding is one reported problem.
type Finding struct {
	Pos     token.Position
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Pos, f.Message)
}

// Options select the files to check.
type Options struct {
	Dir        string
	Extensions []string
	Exclude    []string
}

// Run walks opts.Dir and checks every file with a matching extension outside
// the excluded directories. Only Go sources can be checked.
func Run(opts Options, logger zerolog.Logger) ([]Finding, error) {
	for _, ext := range opts.Extensions {
		if ext != ".go" {
			return nil, fmt.Errorf("lint: cannot check %s files", ext)
		}
	}
	fset := token.NewFileSet()
	var files []*ast.File
	err := filepath.WalkDir(opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != opts.Dir && (slices.Contains(opts.Exclude, d.Name()) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		// tests build unlabeled buttons on purpose
		if !slices.Contains(opts.Extensions, filepath.Ext(path)) || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return fmt.Errorf("lint: %w", err)
		}
		logger.Debug().Str("file", path).Msg("lint: parsed")
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	findings := Check(fset, files)
	logger.Info().Int("files", len(files)).Int("findings", len(findings)).Msg("lint: done")
	return findings, nil
}

// Check inspects parsed files for button.Props literals without a label.
// The button package is recognised under whatever name each file imports it.
func Check(fset *token.FileSet, files []*ast.File) []Finding {
	var findings []Finding
	var names importNames
	in := inspector.New(files)
	in.Preorder([]ast.Node{(*ast.File)(nil), (*ast.CompositeLit)(nil)}, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.File:
			names = buttonImports(n)
		case *ast.CompositeLit:
			if !names.isProps(n.Type) {
				return
			}
			if msg := checkLabel(n); msg != "" {
				findings = append(findings, Finding{Pos: fset.Position(n.Pos()), Message: msg})
			}
		}
	})
	return findings
}

// importNames are the names the button package is visible under in one file.
type importNames struct {
	qualified []string
	dot       bool
}

func buttonImports(f *ast.File) importNames {
	var names importNames
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !strings.HasSuffix(p, buttonPath) {
			continue
		}
		switch {
		case imp.Name == nil:
			names.qualified = append(names.qualified, path.Base(p))
		case imp.Name.Name == ".":
			names.dot = true
		case imp.Name.Name != "_":
			names.qualified = append(names.qualified, imp.Name.Name)
		}
	}
	return names
}

func (names importNames) isProps(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.SelectorExpr:
		x, ok := t.X.(*ast.Ident)
		return ok && t.Sel.Name == propsType && slices.Contains(names.qualified, x.Name)
	case *ast.Ident:
		return names.dot && t.Name == propsType
	}
	return false
}

func checkLabel(lit *ast.CompositeLit) string {
	if len(lit.Elts) == 0 {
		return "button.Props needs " + labelString
	}
	if _, keyed := lit.Elts[0].(*ast.KeyValueExpr); !keyed {
		if isEmptyString(lit.Elts[0]) {
			return "button.Props has an empty label"
		}
		return ""
	}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || key.Name != labelField {
			continue
		}
		if isEmptyString(kv.Value) {
			return "button.Props has an empty label"
		}
		return ""
	}
	return "button.Props needs " + labelString
}

func isEmptyString(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return false
	}
	s, err := strconv.Unquote(lit.Value)
	return err == nil && s == ""
}
