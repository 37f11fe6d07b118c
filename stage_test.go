// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	tarpipe "github.com/hashicorp/go-tarpipe"
)

func TestExtractOrderAndSkipping(t *testing.T) {
	// Scenario: one archive with two regular files and a directory entry in
	// between. The directory is skipped, the files come out in container
	// order under their normalized inner paths.
	archive := packTar(t, []tarContent{
		{name: "x.txt", content: []byte("x content"), mode: 0640, fileType: tar.TypeReg},
		{name: "dir/", mode: 0750, fileType: tar.TypeDir},
		{name: "dir/y.txt", content: []byte("y content"), mode: 0640, fileType: tar.TypeReg},
	})

	stage := tarpipe.NewStage(
		tarpipe.FromPaths("/data/a.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{"/data/a.tar": archive})),
	)

	it := stage.Extract(context.Background())
	defer it.Close()

	want := []struct {
		name    string
		content string
	}{
		{"/data/a.tar/x.txt", "x content"},
		{"/data/a.tar/dir/y.txt", "y content"},
	}

	for _, w := range want {
		f, err := it.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if f.Name != w.name {
			t.Errorf("Next() name = %s, want %s", f.Name, w.name)
		}
		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("reading member %s failed: %v", f.Name, err)
		}
		if string(data) != w.content {
			t.Errorf("member %s content = %q, want %q", f.Name, data, w.content)
		}
	}

	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next() after exhaustion = %v, want io.EOF", err)
	}
}

func TestExtractMultipleArchives(t *testing.T) {
	// the same member name in different archives yields distinct inner paths
	archive := packTar(t, []tarContent{
		{name: "data.bin", content: []byte("payload"), mode: 0640, fileType: tar.TypeReg},
	})

	stage := tarpipe.NewStage(
		tarpipe.FromPaths("/data/a.tar", "/data/b.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{
			"/data/a.tar": archive,
			"/data/b.tar": archive,
		})),
	)

	got := drainNames(t, stage)
	want := []string{"/data/a.tar/data.bin", "/data/b.tar/data.bin"}
	if len(got) != len(want) {
		t.Fatalf("yielded %d files, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExtractIdempotence(t *testing.T) {
	archive := packTar(t, []tarContent{
		{name: "one", content: []byte("1"), mode: 0640, fileType: tar.TypeReg},
		{name: "two", content: []byte("2"), mode: 0640, fileType: tar.TypeReg},
		{name: "fifo", fileType: tar.TypeFifo},
		{name: "three", content: []byte("3"), mode: 0640, fileType: tar.TypeReg},
	})
	open := memOpen(map[string][]byte{"a.tar": archive})

	first := drainNames(t, tarpipe.NewStage(tarpipe.FromPaths("a.tar"), tarpipe.WithOpenFunc(open)))
	second := drainNames(t, tarpipe.NewStage(tarpipe.FromPaths("a.tar"), tarpipe.WithOpenFunc(open)))

	if len(first) != 3 {
		t.Fatalf("yielded %d files, want 3", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("re-run diverged at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestExtractEmptyUpstream(t *testing.T) {
	stage := tarpipe.NewStage(tarpipe.FromPaths())
	it := stage.Extract(context.Background())
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
}

func TestExtractEmptyArchive(t *testing.T) {
	archive := packTar(t, nil)
	stage := tarpipe.NewStage(
		tarpipe.FromPaths("empty.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{"empty.tar": archive})),
	)
	it := stage.Extract(context.Background())
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
}

func TestExtractTypeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		values []interface{}
		// yields is the number of files produced before the failure
		yields int
	}{
		{
			name:   "non-string as first element",
			values: []interface{}{42},
			yields: 0,
		},
		{
			name: "non-string after a valid archive",
			values: []interface{}{
				"a.tar",
				[]byte("not a string"),
				"a.tar",
			},
			yields: 1,
		},
	}

	archive := packTar(t, []tarContent{
		{name: "f", content: []byte("f"), mode: 0640, fileType: tar.TypeReg},
	})

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stage := tarpipe.NewStage(
				tarpipe.FromValues(test.values...),
				tarpipe.WithOpenFunc(memOpen(map[string][]byte{"a.tar": archive})),
			)
			it := stage.Extract(context.Background())
			defer it.Close()

			for i := 0; i < test.yields; i++ {
				if _, err := it.Next(); err != nil {
					t.Fatalf("Next() %d error = %v, want file", i, err)
				}
			}

			_, err := it.Next()
			var tme *tarpipe.TypeMismatchError
			if !errors.As(err, &tme) {
				t.Fatalf("Next() error = %v, want TypeMismatchError", err)
			}

			// failed is terminal, no elements after the offending one are drawn
			if _, again := it.Next(); again != err {
				t.Errorf("Next() after failure = %v, want %v", again, err)
			}
		})
	}
}

func TestExtractTruncatedArchive(t *testing.T) {
	// a tar stream cut mid-member: the first member header is intact, the
	// walk fails while advancing past its data
	archive := packTar(t, []tarContent{
		{name: "big", content: bytes.Repeat([]byte("a"), 4096), mode: 0640, fileType: tar.TypeReg},
		{name: "after", content: []byte("never seen"), mode: 0640, fileType: tar.TypeReg},
	})
	truncated := archive[:600]

	stage := tarpipe.NewStage(
		tarpipe.FromPaths("bad.tar", "good.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{
			"bad.tar":  truncated,
			"good.tar": packTar(t, []tarContent{{name: "g", content: []byte("g"), mode: 0640, fileType: tar.TypeReg}}),
		})),
	)

	it := stage.Extract(context.Background())
	defer it.Close()

	var names []string
	var err error
	for {
		var f *tarpipe.File
		if f, err = it.Next(); err != nil {
			break
		}
		names = append(names, f.Name)
	}

	var ae *tarpipe.ArchiveError
	if !errors.As(err, &ae) {
		t.Fatalf("Next() error = %v, want ArchiveError", err)
	}
	if ae.Path != "bad.tar" {
		t.Errorf("ArchiveError path = %s, want bad.tar", ae.Path)
	}

	// fail-fast: nothing from the subsequent good archive
	for _, n := range names {
		if filepath.Dir(n) == "good.tar" {
			t.Errorf("file %s produced after corrupted archive", n)
		}
	}
}

func TestExtractGarbageArchive(t *testing.T) {
	stage := tarpipe.NewStage(
		tarpipe.FromPaths("garbage"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{
			"garbage": bytes.Repeat([]byte("no archive here "), 64),
		})),
	)
	it := stage.Extract(context.Background())

	_, err := it.Next()
	var oe *tarpipe.OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("Next() error = %v, want OpenError", err)
	}
}

func TestExtractMissingArchive(t *testing.T) {
	// default open function, nonexistent file
	stage := tarpipe.NewStage(tarpipe.FromPaths(filepath.Join(t.TempDir(), "missing.tar")))
	it := stage.Extract(context.Background())

	_, err := it.Next()
	var oe *tarpipe.OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("Next() error = %v, want OpenError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Next() error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestExtractFromDisk(t *testing.T) {
	// default open function end to end
	archive := packTar(t, []tarContent{
		{name: "payload.txt", content: []byte("on disk"), mode: 0640, fileType: tar.TypeReg},
	})
	pathname := filepath.Join(t.TempDir(), "disk.tar")
	if err := os.WriteFile(pathname, archive, 0640); err != nil {
		t.Fatalf("writing archive failed: %v", err)
	}

	stage := tarpipe.NewStage(tarpipe.FromPaths(pathname))
	it := stage.Extract(context.Background())
	defer it.Close()

	f, err := it.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if want := filepath.Join(pathname, "payload.txt"); f.Name != want {
		t.Errorf("Next() name = %s, want %s", f.Name, want)
	}
	data, err := io.ReadAll(f)
	if err != nil || string(data) != "on disk" {
		t.Errorf("member content = %q, %v, want \"on disk\"", data, err)
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	archive := packTar(t, []tarContent{
		{name: "f", content: []byte("f"), mode: 0640, fileType: tar.TypeReg},
	})
	stage := tarpipe.NewStage(
		tarpipe.FromPaths("a.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{"a.tar": archive})),
	)

	_, err := stage.Extract(ctx).Next()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want wrapped context.Canceled", err)
	}
}

func TestExtractMaxInputSize(t *testing.T) {
	archive := packTar(t, []tarContent{
		{name: "big", content: bytes.Repeat([]byte("a"), 8192), mode: 0640, fileType: tar.TypeReg},
	})
	stage := tarpipe.NewStage(
		tarpipe.FromPaths("a.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{"a.tar": archive})),
		tarpipe.WithMaxInputSize(1024),
	)

	it := stage.Extract(context.Background())
	defer it.Close()

	var err error
	for err == nil {
		var f *tarpipe.File
		if f, err = it.Next(); err == nil {
			_, err = io.Copy(io.Discard, f)
		}
	}
	if err == io.EOF {
		t.Fatalf("input size cap not enforced")
	}
}

func TestIteratorClose(t *testing.T) {
	archive := packTar(t, []tarContent{
		{name: "one", content: []byte("1"), mode: 0640, fileType: tar.TypeReg},
		{name: "two", content: []byte("2"), mode: 0640, fileType: tar.TypeReg},
	})
	stage := tarpipe.NewStage(
		tarpipe.FromPaths("a.tar"),
		tarpipe.WithOpenFunc(memOpen(map[string][]byte{"a.tar": archive})),
	)

	it := stage.Extract(context.Background())
	if _, err := it.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	// abandoning mid-archive releases the handle deterministically
	if err := it.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next() after Close = %v, want io.EOF", err)
	}
	if err := it.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStageLen(t *testing.T) {
	tests := []struct {
		name    string
		opts    []tarpipe.ConfigOption
		want    int64
		wantErr bool
	}{
		{
			name:    "no hint configured",
			wantErr: true,
		},
		{
			name: "hint configured",
			opts: []tarpipe.ConfigOption{tarpipe.WithLength(42)},
			want: 42,
		},
		{
			name: "hint is advisory, unrelated to production",
			opts: []tarpipe.ConfigOption{tarpipe.WithLength(7)},
			want: 7,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stage := tarpipe.NewStage(tarpipe.FromPaths(), test.opts...)
			got, err := stage.Len()
			if test.wantErr {
				if !errors.Is(err, tarpipe.ErrLengthNotSupported) {
					t.Fatalf("Len() error = %v, want ErrLengthNotSupported", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Len() error = %v", err)
			}
			if got != test.want {
				t.Errorf("Len() = %d, want %d", got, test.want)
			}
		})
	}
}

// drainNames pulls a fresh iterator until exhaustion and returns the yielded
// inner paths
func drainNames(t *testing.T, stage *tarpipe.Stage) []string {
	t.Helper()

	it := stage.Extract(context.Background())
	defer it.Close()

	var names []string
	for {
		f, err := it.Next()
		if err == io.EOF {
			return names
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		names = append(names, f.Name)
	}
}

// memOpen resolves path identifiers against an in-memory set of archives
func memOpen(archives map[string][]byte) tarpipe.OpenFunc {
	return func(pathname string) (io.ReadCloser, error) {
		data, ok := archives[pathname]
		if !ok {
			return nil, os.ErrNotExist
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// tarContent is a struct to store the content of a tar file
type tarContent struct {
	content  []byte
	mode     os.FileMode
	name     string
	fileType byte
}

// packTar creates a tar file with the given content
func packTar(t *testing.T, content []tarContent) []byte {
	t.Helper()

	writeBuffer := bytes.NewBuffer([]byte{})
	tw := tar.NewWriter(writeBuffer)

	for _, c := range content {
		hdr := &tar.Header{
			Name:     c.name,
			Mode:     int64(c.mode),
			Size:     int64(len(c.content)),
			Typeflag: c.fileType,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("error writing tar header: %v", err)
		}
		if _, err := tw.Write(c.content); err != nil {
			t.Fatalf("error writing tar data: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("error closing tar writer: %v", err)
	}

	return writeBuffer.Bytes()
}
