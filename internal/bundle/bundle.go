// Package bundle writes a page as one HTML file that a browser opens without a
// hellovia server. When the build configuration names a local Datastar client
// it is inlined and the file is fully self-contained; otherwise the page loads
// Datastar from its CDN.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	via "github.com/ryanhamamura/hellovia"
	"github.com/ryanhamamura/hellovia/h"
	"github.com/ryanhamamura/hellovia/internal/buildcfg"
	"golang.org/x/net/html"
)

const inspectorSrc = "https://cdn.jsdelivr.net/gh/dataSPA/dataSPA-inspector@latest/dataspa-inspector.bundled.js"

// ErrNoMount is returned when the rendered document lacks the mount element.
var ErrNoMount = errors.New("bundle: mount element missing from output")

// ErrUnsafeScript is returned for a Datastar client that cannot be inlined in
// a <script> element.
var ErrUnsafeScript = errors.New("bundle: script contains a closing script tag")

// Pages maps entry routes to client-side renders.
type Pages map[string]func() h.H

// Document returns the HTML document for view under cfg. A non-nil script is
// inlined as the Datastar client in place of the CDN reference.
func Document(cfg buildcfg.Config, view h.H, script []byte) h.H {
	datastar := h.Script(h.Type("module"), h.Src(via.DefaultDatastarURL))
	if script != nil {
		datastar = h.Script(h.Type("module"), h.Raw(string(script)))
	}
	body := []h.H{h.Div(h.ID(cfg.Mount), view)}
	if cfg.Dev() {
		body = append(body,
			h.Script(h.Type("module"), h.Src(inspectorSrc)),
			h.Raw("<dataspa-inspector/>"),
		)
	}
	return h.HTML5(h.HTML5Props{
		Title: cfg.Title,
		Head:  []h.H{datastar},
		Body:  body,
	})
}

// Build renders the entry page of cfg and writes it to cfg.Output.File().
// It returns the path written.
func Build(cfg buildcfg.Config, pages Pages, logger zerolog.Logger) (string, error) {
	render, ok := pages[cfg.Entry]
	if !ok {
		return "", fmt.Errorf("bundle: no page for entry %q", cfg.Entry)
	}
	script, err := loadScript(cfg.Datastar)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Document(cfg, render(), script).Render(&buf); err != nil {
		return "", fmt.Errorf("bundle: render %q: %w", cfg.Entry, err)
	}
	if err := Verify(buf.Bytes(), cfg.Mount); err != nil {
		return "", err
	}

	out := cfg.Output.File()
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), ".bundle-*")
	if err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("bundle: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("bundle: write: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}

	logger.Info().
		Str("entry", cfg.Entry).
		Str("mode", string(cfg.Mode)).
		Str("output", out).
		Bool("inline_datastar", script != nil).
		Int("bytes", buf.Len()).
		Msg("bundle written")
	return out, nil
}

func loadScript(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	script, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: datastar client: %w", err)
	}
	if bytes.Contains(bytes.ToLower(script), []byte("</script")) {
		return nil, fmt.Errorf("%w: %s", ErrUnsafeScript, path)
	}
	return script, nil
}

// Verify parses doc and checks that the element with id mount exists and
// holds at least one button.
func Verify(doc []byte, mount string) error {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("bundle: parse output: %w", err)
	}
	m := findByID(root, mount)
	if m == nil {
		return fmt.Errorf("%w: #%s", ErrNoMount, mount)
	}
	if findTag(m, "button") == nil {
		return fmt.Errorf("bundle: #%s has no button", mount)
	}
	return nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}
