package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/digitorus/pdfstamp/integrity"
	"github.com/digitorus/pdfstamp/internal/testpdf"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSignature(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "sig.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStampCommand(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, "in.pdf", testpdf.Build(testpdf.Letters(2), testpdf.Options{}))
	output := filepath.Join(dir, "out.pdf")
	sig := writeSignature(t, dir)

	stdout, err := run(t, "stamp", "--page", "2", "--x", "0.5", "--y", "0.5", "--width", "0.2", "--height", "0.1", input, output, sig)
	if err != nil {
		t.Fatalf("stamp failed: %v\n%s", err, stdout)
	}

	var res stampOutput
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if res.Page != 2 || len(res.Warnings) != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalHash != integrity.Hash(data) {
		t.Error("final hash does not match the written file")
	}
}

func TestStampCommand_Base64Signature(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, "in.pdf", testpdf.Build(testpdf.Letters(1), testpdf.Options{XrefStream: true}))
	output := filepath.Join(dir, "out.pdf")

	raw, err := os.ReadFile(writeSignature(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	sig := filepath.Join(dir, "sig.b64")
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	if err := os.WriteFile(sig, []byte(dataURL+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if out, err := run(t, "stamp", "--no-compress", input, output, sig); err != nil {
		t.Fatalf("stamp failed: %v\n%s", err, out)
	}
}

func TestStampCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, "in.pdf", testpdf.Build(testpdf.Letters(1), testpdf.Options{}))
	sig := writeSignature(t, dir)
	garbage := filepath.Join(dir, "garbage.txt")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing args", []string{"stamp", input}},
		{"bad image", []string{"stamp", input, filepath.Join(dir, "o1.pdf"), garbage}},
		{"zero height", []string{"stamp", "--height", "0", input, filepath.Join(dir, "o2.pdf"), sig}},
		{"missing input", []string{"stamp", filepath.Join(dir, "nope.pdf"), filepath.Join(dir, "o3.pdf"), sig}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHashAndVerify(t *testing.T) {
	path := testpdf.WriteFile(t, "doc.pdf", []byte("%PDF-1.7 test"))
	want := integrity.Hash([]byte("%PDF-1.7 test"))

	out, err := run(t, "hash", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != want+"  "+path+"\n" {
		t.Errorf("hash output = %q", out)
	}

	out, err = run(t, "hash", "-a", "blake2b-256", path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(out, want) {
		t.Error("blake2b digest equals sha256 digest")
	}

	if _, err := run(t, "hash", "-a", "md5", path); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}

	out, err = run(t, "verify", path, strings.ToUpper(want))
	if err != nil || !strings.HasSuffix(out, ": OK\n") {
		t.Errorf("verify = %q, %v", out, err)
	}

	out, err = run(t, "verify", path, integrity.Hash([]byte("other")))
	if !errors.Is(err, errMismatch) || !strings.HasSuffix(out, ": MISMATCH\n") {
		t.Errorf("verify mismatch = %q, %v", out, err)
	}
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	pages := []testpdf.Page{{MediaBox: testpdf.Letter}, {MediaBox: testpdf.A4}}
	input := testpdf.WriteFile(t, "in.pdf", testpdf.Build(pages, testpdf.Options{}))
	output := filepath.Join(dir, "out.pdf")

	if _, err := run(t, "stamp", input, output, writeSignature(t, dir)); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "inspect", output)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"612", "792", "595", "842", "Stamp1", "20x10", "FlateDecode"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	if _, err := run(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.conf")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestExecute(t *testing.T) {
	origExit := osExit
	defer func() { osExit = origExit }()

	var exitCode int
	osExit = func(code int) {
		exitCode = code
		panic("os.Exit called")
	}

	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"pdfstamp", "no-such-command"}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected osExit to be called")
			}
		}()
		Execute()
	}()
	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
}
