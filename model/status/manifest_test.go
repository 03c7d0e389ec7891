package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/navigator/model/format"
)

func TestManifest_Summarize(t *testing.T) {
	testCases := []struct {
		description string
		commands    []*CommandResult
		expect      map[format.ID]Status
	}{
		{
			description: "all success",
			commands: []*CommandResult{
				{Command: "convert:onnx", Kind: KindConvert, Format: format.ONNX, Status: Success},
				{Command: "verify:onnx", Kind: KindVerify, Format: format.ONNX, Status: Success},
			},
			expect: map[format.ID]Status{format.ONNX: Success},
		},
		{
			description: "verify failure fails format",
			commands: []*CommandResult{
				{Command: "convert:onnx", Kind: KindConvert, Format: format.ONNX, Status: Success},
				{Command: "verify:onnx", Kind: KindVerify, Format: format.ONNX, Status: Failure},
			},
			expect: map[format.ID]Status{format.ONNX: Failure},
		},
		{
			description: "conversion failure with skipped verify",
			commands: []*CommandResult{
				{Command: "convert:onnx", Kind: KindConvert, Format: format.ONNX, Status: Failure},
				{Command: "verify:onnx", Kind: KindVerify, Format: format.ONNX, Status: Skipped},
				{Command: "convert:trt-fp16", Kind: KindConvert, Format: format.TensorRT, Status: Skipped},
			},
			expect: map[format.ID]Status{format.ONNX: Failure, format.TensorRT: Skipped},
		},
	}
	for _, testCase := range testCases {
		manifest := &Manifest{Commands: testCase.commands}
		manifest.Summarize()
		assert.Equal(t, testCase.expect, manifest.Formats, testCase.description)
	}
}

func TestEncodeDecode(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	result := &CommandResult{Command: "verify:safetensors", Kind: KindVerify, Format: format.Safetensors, Attempts: 1}
	result.Start(started)
	result.Complete(started.Add(1500*time.Millisecond), Success, nil)
	result.Verdict = &Verdict{Kind: VerdictMatch, Tolerance: Tolerance{Atol: 1e-5, Rtol: 1e-5}, Samples: 10}
	batchDim := 0
	manifest := &Manifest{
		Version:       ManifestVersion,
		RunID:         "run-1",
		ModelName:     "linear",
		Framework:     "go",
		State:         StateComplete,
		CreatedAt:     started,
		CompletedAt:   started.Add(2 * time.Second),
		BatchDim:      &batchDim,
		Samples:       Samples{Group: "correctness", Count: 10},
		TargetFormats: []format.ID{format.Safetensors},
		Commands:      []*CommandResult{result},
	}
	manifest.Summarize()
	data, err := Encode(manifest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "state: complete")

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.EqualValues(t, 1500, decoded.Result("verify:safetensors").DurationMs)
	assert.True(t, decoded.Result("verify:safetensors").Verdict.IsMatch())
	assert.Equal(t, Success, decoded.Formats[format.Safetensors])
	assert.Equal(t, 0, *decoded.BatchDim)
	assert.Equal(t, 1, decoded.Count(Success))
}

func TestDecode_Invalid(t *testing.T) {
	testCases := []struct {
		description string
		text        string
	}{
		{description: "malformed", text: "version: [1"},
		{description: "missing model", text: "version: \"1\"\nstate: complete\n"},
		{description: "unknown state", text: "version: \"1\"\nmodelName: m\nstate: running\n"},
		{description: "duplicate command", text: "version: \"1\"\nmodelName: m\nstate: complete\ncommands:\n  - command: a\n    status: success\n  - command: a\n    status: success\n"},
		{description: "bad status", text: "version: \"1\"\nmodelName: m\nstate: complete\ncommands:\n  - command: a\n    status: done\n"},
	}
	for _, testCase := range testCases {
		_, err := Decode([]byte(testCase.text))
		assert.Error(t, err, testCase.description)
	}
}

func TestCommandResult_Clone(t *testing.T) {
	result := &CommandResult{Command: "verify:onnx", Verdict: &Verdict{Kind: VerdictMismatch, Outputs: map[string]*OutputDiff{"y": {MaxAbsDiff: 1}}}}
	clone := result.Clone()
	clone.Verdict.Outputs["y"].MaxAbsDiff = 2
	assert.EqualValues(t, 1, result.Verdict.Outputs["y"].MaxAbsDiff)
}
