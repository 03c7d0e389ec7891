package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/sample"
	"github.com/viant/navigator/service/workspace"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	for _, name := range names {
		location := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(location), 0o755))
		require.NoError(t, os.WriteFile(location, []byte("x"), 0o644))
	}
}

func TestDiffLayouts(t *testing.T) {
	testCases := []struct {
		description string
		a           []string
		b           []string
		expect      []string
	}{
		{
			description: "identical",
			a:           []string{"status.yaml", "onnx/model.onnx"},
			b:           []string{"status.yaml", "onnx/model.onnx"},
		},
		{
			description: "extra format",
			a:           []string{"status.yaml", "onnx/model.onnx"},
			b:           []string{"status.yaml", "onnx/model.onnx", "trt-fp16/model.plan"},
			expect:      []string{"+trt-fp16/model.plan"},
		},
		{
			description: "missing file",
			a:           []string{"navigator.log", "status.yaml"},
			b:           []string{"status.yaml"},
			expect:      []string{"-navigator.log"},
		},
	}
	for _, testCase := range testCases {
		dirA, dirB := t.TempDir(), t.TempDir()
		writeFiles(t, dirA, testCase.a...)
		writeFiles(t, dirB, testCase.b...)
		patch, err := diffLayouts(context.Background(), afs.New(), dirA, dirB)
		require.NoError(t, err, testCase.description)
		if len(testCase.expect) == 0 {
			assert.Empty(t, patch, testCase.description)
			continue
		}
		for _, line := range testCase.expect {
			assert.Contains(t, patch, line, testCase.description)
		}
	}
}

func TestPrintManifest(t *testing.T) {
	manifest := &status.Manifest{
		ModelName: "linear",
		Framework: "go",
		State:     status.StateComplete,
		Samples:   status.Samples{Group: "correctness", Count: 10},
		Commands: []*status.CommandResult{
			{Command: "convert:safetensors", Kind: status.KindConvert, Format: format.Safetensors, Status: status.Success},
			{Command: "verify:safetensors", Kind: status.KindVerify, Format: format.Safetensors, Status: status.Failure,
				Verdict: &status.Verdict{Kind: status.VerdictMismatch, MaxAbsDiff: 0.5}},
		},
	}
	manifest.Summarize()
	out := &bytes.Buffer{}
	printManifest(out, manifest)
	text := out.String()
	assert.Contains(t, text, "model: linear (go)")
	assert.Contains(t, text, "samples: correctness/10")
	assert.Contains(t, text, "mismatch maxAbsDiff=0.5")
	assert.Regexp(t, `safetensors\s+failure`, text)
}

func TestStatusCmd_Filter(t *testing.T) {
	ctx := context.Background()
	manifest := &status.Manifest{
		Version:   status.ManifestVersion,
		RunID:     "run",
		ModelName: "linear",
		State:     status.StateComplete,
		Commands: []*status.CommandResult{
			{Command: "convert:safetensors", Kind: status.KindConvert, Format: format.Safetensors, Status: status.Success},
			{Command: "verify:safetensors", Kind: status.KindVerify, Format: format.Safetensors, Status: status.Failure},
			{Command: "convert:onnx", Kind: status.KindConvert, Format: format.ONNX, Status: status.Failure},
			{Command: "verify:onnx", Kind: status.KindVerify, Format: format.ONNX, Status: status.Skipped},
		},
	}
	manifest.Summarize()
	ws, err := workspace.New(afs.New(), t.TempDir(), "linear")
	require.NoError(t, err)
	require.NoError(t, ws.Prepare(ctx, false))
	require.NoError(t, ws.WriteManifest(ctx, manifest))

	testCases := []struct {
		description string
		args        []string
		expect      []string
		expectErr   bool
	}{
		{description: "all", expect: []string{"convert:safetensors", "verify:safetensors", "convert:onnx", "verify:onnx"}},
		{description: "failures", args: []string{"--status", "failure"}, expect: []string{"verify:safetensors", "convert:onnx"}},
		{description: "failures and skips", args: []string{"--status", "failure,skipped"}, expect: []string{"verify:safetensors", "convert:onnx", "verify:onnx"}},
		{description: "failures of a format", args: []string{"--status", "failure", "--format", "onnx"}, expect: []string{"convert:onnx"}},
		{description: "no match", args: []string{"--status", "success", "--format", "onnx"}},
	}
	for _, testCase := range testCases {
		out := &bytes.Buffer{}
		cmd := newRootCmd()
		cmd.SetOut(out)
		cmd.SetArgs(append([]string{"status", ws.Dir()}, testCase.args...))
		require.NoError(t, cmd.Execute(), testCase.description)
		var actual []string
		for _, line := range strings.Split(out.String(), "\n") {
			fields := strings.Fields(line)
			if len(fields) > 0 && strings.Contains(fields[0], ":") && !strings.HasSuffix(fields[0], ":") {
				actual = append(actual, fields[0])
			}
		}
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestExportCmd(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash is not available")
	}
	dir := t.TempDir()
	samplesDir := filepath.Join(dir, "samples")
	require.NoError(t, os.MkdirAll(samplesDir, 0o755))
	for i := 0; i < 3; i++ {
		input, err := tensor.New("x", []int{1, 4}, []float64{float64(i), 1, 2, 3})
		require.NoError(t, err)
		data, err := sample.Encode(tensor.Tensors{input})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(samplesDir, sample.FileName(i)), data, 0o644))
	}
	source := filepath.Join(dir, "model.onnx")
	require.NoError(t, os.WriteFile(source, []byte("graph"), 0o644))
	config := `modelName: identity
workdir: ` + filepath.Join(dir, "out") + `
framework: onnx
source: ` + source + `
run:
  command: cp ${input} ${output}
samples: ` + samplesDir + `
targetFormats: [onnx]
backends:
  - format: onnx
    convert: cp ${source} ${output}
    run: test -f ${model} && cp ${input} ${output}
navigator:
  skipCapabilityCheck: true
`
	configURL := filepath.Join(dir, "export.yaml")
	require.NoError(t, os.WriteFile(configURL, []byte(config), 0o644))

	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"export", "--config", configURL})
	require.NoError(t, cmd.Execute(), out.String())
	assert.Contains(t, out.String(), "verify:onnx")

	packageDir := workspace.PackageDir(filepath.Join(dir, "out"), "identity")
	manifest, err := workspace.LoadManifest(context.Background(), afs.New(), packageDir)
	require.NoError(t, err)
	assert.Equal(t, status.Success, manifest.Formats[format.ONNX])
	assert.Equal(t, 3, manifest.Samples.Count)

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"export", "--config", configURL})
	assert.Error(t, cmd.Execute(), "existing package without --override")

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"status", packageDir})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "model: identity (onnx)"))
}

func TestExportConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		config      *exportConfig
		expectErr   bool
	}{
		{description: "missing model name", config: &exportConfig{Workdir: "/tmp", Samples: "s"}, expectErr: true},
		{description: "missing run", config: &exportConfig{ModelName: "m", Workdir: "/tmp", Samples: "s"}, expectErr: true},
		{description: "missing samples", config: &exportConfig{ModelName: "m", Workdir: "/tmp"}, expectErr: true},
	}
	for _, testCase := range testCases {
		err := testCase.config.validate()
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
	}
}
