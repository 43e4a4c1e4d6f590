// manifestgen scans an asset root and writes the preload manifest the
// daemon reads at boot. Kinds come from file extensions:
//
//	.yaml .yml  -> table
//	.lua        -> script
//	.txt .csv   -> text
//	everything else -> raw
//
// Usage:
//
//	go run ./cmd/manifestgen [--root path] [--out file] [--reload]
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/riftforge/assets/internal/manifest"
	"github.com/riftforge/assets/internal/source"
)

func main() {
	flags := flag.NewFlagSet("manifestgen", flag.ContinueOnError)
	root := flags.String("root", "assets", "asset root directory to scan")
	out := flags.String("out", "", "output file [default <root>/manifest.yaml]")
	reload := flags.Bool("reload", false, "mark every entry hot-reloadable")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*root, "manifest.yaml")
	}

	if err := generate(*root, *out, *reload); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func kindFor(name string) manifest.Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return manifest.KindTable
	case ".lua":
		return manifest.KindScript
	case ".txt", ".csv":
		return manifest.KindText
	default:
		return manifest.KindRaw
	}
}

func generate(root, out string, reload bool) error {
	outName := ""
	if rel, err := filepath.Rel(root, out); err == nil {
		outName = filepath.ToSlash(rel)
	}

	var entries []manifest.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name, err := source.CleanName(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if name == outName {
			return nil // the manifest does not list itself
		}
		entries = append(entries, manifest.Entry{
			Name:   name,
			Kind:   kindFor(name),
			Reload: reload,
		})
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	m := manifest.Manifest{Entries: entries}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	// Round-trip through the daemon's validator so a generated manifest
	// can never be one it refuses to boot with.
	if _, err := manifest.Parse(data); err != nil {
		return fmt.Errorf("generated manifest invalid: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# Generated by manifestgen. Edit kinds/encodings as needed.")
	fmt.Fprintln(&buf)
	buf.Write(data)
	if err := atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Printf("wrote %s (%d entries)\n", out, len(entries))
	return nil
}
