package l5x

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Decode parses one project document.
func Decode(r io.Reader) (*Content, error) {
	var c Content
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode l5x: %w", err)
	}
	if strings.TrimSpace(c.Controller.Name) == "" {
		return nil, fmt.Errorf("decode l5x: controller has no name")
	}
	normalize(&c.Controller)
	return &c, nil
}

// normalize trims the indentation captured as character data around
// structured tag values so that decode and encode are inverse.
func normalize(ctl *Controller) {
	trim := func(tags []Tag) {
		for i := range tags {
			for j := range tags[i].Data {
				tags[i].Data[j].Text = strings.TrimSpace(tags[i].Data[j].Text)
			}
		}
	}
	trim(ctl.Tags)
	for i := range ctl.Programs {
		trim(ctl.Programs[i].Tags)
	}
	for i := range ctl.AOIs {
		for j := range ctl.AOIs[i].LocalTags {
			lt := &ctl.AOIs[i].LocalTags[j]
			for k := range lt.Data {
				lt.Data[k].Text = strings.TrimSpace(lt.Data[k].Text)
			}
		}
	}
}

// Encode writes c as an indented document with an XML header.
func Encode(w io.Writer, c *Content) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("encode l5x: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode l5x: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode l5x: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the encoded document.
func Marshal(c *Content) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadFile decodes the document at path.
func LoadFile(path string) (*Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadPath loads a single file, or every *.L5X file (case-insensitive
// extension) in a directory sorted by file name. Sorting fixes the
// controller index used for renaming.
func LoadPath(path string) ([]*Content, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		c, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		return []*Content{c}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".l5x") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no .L5X files in %s", path)
	}

	docs := make([]*Content, 0, len(names))
	for _, n := range names {
		c, err := LoadFile(filepath.Join(path, n))
		if err != nil {
			return nil, err
		}
		docs = append(docs, c)
	}
	return docs, nil
}
