package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDisk_Write(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		data         []byte
		expectError  error
		expectedUsed int
	}{
		{
			name:         "Valid write",
			filename:     "main.typ",
			data:         []byte{1, 2, 3},
			expectedUsed: 3,
		},
		{
			name:         "Nested path",
			filename:     "chapters/intro.typ",
			data:         []byte("= Intro"),
			expectedUsed: 7,
		},
		{
			name:         "Leading slash is the root",
			filename:     "/main.typ",
			data:         []byte{1},
			expectedUsed: 1,
		},
		{
			name:         "Spaces and non-ASCII",
			filename:     "my notes/grüße.typ",
			data:         []byte{1, 2},
			expectedUsed: 2,
		},
		{
			name:        "Invalid filename control chars",
			filename:    "test\x00.typ",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Invalid filename empty segment",
			filename:    "a//b.typ",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Invalid filename path traversal",
			filename:    "../passwd",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Quota exceeded",
			filename:    "big.bin",
			data:        make([]byte, 1025),
			expectError: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDisk(1024)
			err := d.Write(tt.filename, tt.data)
			if !errors.Is(err, tt.expectError) {
				t.Fatalf("Write() error = %v, want %v", err, tt.expectError)
			}
			if tt.expectError != nil {
				if d.UsedBytes() != 0 {
					t.Errorf("UsedBytes = %d after failed write", d.UsedBytes())
				}
				return
			}
			if d.UsedBytes() != tt.expectedUsed {
				t.Errorf("UsedBytes = %d, expected %d", d.UsedBytes(), tt.expectedUsed)
			}
			got, err := d.Read(tt.filename)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.data) {
				t.Errorf("Read() = %v, want %v", got, tt.data)
			}
		})
	}
}

func TestDisk_Overwrite(t *testing.T) {
	d := NewDisk(10)
	if err := d.Write("a.typ", make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	// Replacing a file only counts the difference against the quota.
	if err := d.Write("a.typ", make([]byte, 10)); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
	if err := d.Write("a.typ", make([]byte, 11)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("overwrite beyond quota: %v", err)
	}
	got, _ := d.Read("a.typ")
	if len(got) != 10 {
		t.Errorf("failed write changed the file to %d bytes", len(got))
	}
	meta, err := d.Stat("a.typ")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Version != 2 || meta.Data != nil {
		t.Errorf("Stat() = %+v", meta)
	}
}

func TestDisk_DeepCopy(t *testing.T) {
	d := NewDisk(0)
	data := []byte("hello")
	if err := d.Write("a.typ", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'j'
	got, _ := d.Read("a.typ")
	if string(got) != "hello" {
		t.Errorf("stored data changed to %q", got)
	}
}

func TestDisk_Delete(t *testing.T) {
	d := NewDisk(0)
	_ = d.Write("a.typ", []byte("abc"))
	if err := d.Delete("a.typ"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Read("a.typ"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Read() after delete: %v", err)
	}
	if err := d.Delete("a.typ"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second Delete(): %v", err)
	}
	if d.UsedBytes() != 0 {
		t.Errorf("UsedBytes = %d", d.UsedBytes())
	}
}

func TestDisk_LoadFrom(t *testing.T) {
	root := t.TempDir()
	write := func(name, text string) {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("main.typ", "Hello")
	write("lib/util.typ", "#let x = 1")
	write(".git/config", "ignored")
	write("bad name!.typ", "skipped")

	d := NewDisk(0)
	changed, err := d.LoadFrom(root)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"lib/util.typ", "main.typ"}; !reflect.DeepEqual(changed, want) {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	if !reflect.DeepEqual(d.List(), changed) {
		t.Errorf("List() = %v", d.List())
	}

	// Nothing changed on the host.
	changed, err = d.LoadFrom(root)
	if err != nil || len(changed) != 0 {
		t.Fatalf("second load: %v %v", changed, err)
	}

	write("main.typ", "Hello again")
	later := time.Now().Add(time.Minute)
	_ = os.Chtimes(filepath.Join(root, "main.typ"), later, later)
	if err := os.Remove(filepath.Join(root, "lib", "util.typ")); err != nil {
		t.Fatal(err)
	}
	changed, err = d.LoadFrom(root)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"lib/util.typ", "main.typ"}; !reflect.DeepEqual(changed, want) {
		t.Errorf("changed = %v, want %v", changed, want)
	}
	if got, _ := d.Read("main.typ"); string(got) != "Hello again" {
		t.Errorf("main.typ = %q", got)
	}
	if _, err := d.Read("lib/util.typ"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("deleted file still readable: %v", err)
	}
}

func TestDisk_LoadFromMissingRoot(t *testing.T) {
	d := NewDisk(0)
	changed, err := d.LoadFrom(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(changed) != 0 {
		t.Errorf("LoadFrom(missing) = %v, %v", changed, err)
	}
}

func TestDisk_PersistTo(t *testing.T) {
	root := t.TempDir()
	d := NewDisk(0)
	_ = d.Write("out/a.typ", []byte("A"))
	_ = d.Write("b.typ", []byte("B"))
	if err := d.PersistTo(root); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(root, "out", "a.typ"))
	if err != nil || string(got) != "A" {
		t.Fatalf("persisted a.typ = %q, %v", got, err)
	}

	_ = d.Delete("b.typ")
	if err := d.PersistTo(root); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "b.typ")); !os.IsNotExist(err) {
		t.Errorf("deleted file still on host: %v", err)
	}
}
