package sample

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/viant/navigator/model/tensor"
)

const npyExt = ".npy"

// Encode encodes tensors as an npz archive, one stored npy entry per tensor.
func Encode(tensors tensor.Tensors) ([]byte, error) {
	if err := tensors.Validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	for _, item := range tensors {
		entry, err := writer.CreateHeader(&zip.FileHeader{Name: item.Name + npyExt, Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("failed to create %v entry: %w", item.Name, err)
		}
		if err = encodeNpy(entry, item); err != nil {
			return nil, fmt.Errorf("failed to encode %v: %w", item.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes an npz archive preserving entry order.
func Decode(data []byte) (tensor.Tensors, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid npz archive: %w", err)
	}
	var ret tensor.Tensors
	for _, entry := range reader.File {
		if !strings.HasSuffix(entry.Name, npyExt) {
			continue
		}
		content, err := readEntry(entry)
		if err != nil {
			return nil, err
		}
		item, err := decodeNpy(strings.TrimSuffix(entry.Name, npyExt), content)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	reader, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %v: %w", entry.Name, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
