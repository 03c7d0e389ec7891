package sample

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/viant/navigator/model/tensor"
	"github.com/x448/float16"
)

const (
	npyMagic     = "\x93NUMPY"
	npyAlignment = 64
)

// encodeNpy writes a tensor as a version 1.0 npy array, little-endian C order.
func encodeNpy(w io.Writer, t *tensor.Tensor) error {
	descr := "<f8"
	if t.DType == tensor.Float32 {
		descr = "<f4"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple(t.Shape))
	preamble := len(npyMagic) + 2 + 2
	padding := npyAlignment - (preamble+len(header)+1)%npyAlignment
	if padding == npyAlignment {
		padding = 0
	}
	header += strings.Repeat(" ", padding) + "\n"

	buf := &bytes.Buffer{}
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if t.DType == tensor.Float32 {
		data := make([]byte, 4*len(t.Data))
		for i, v := range t.Data {
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(float32(v)))
		}
		buf.Write(data)
	} else {
		data := make([]byte, 8*len(t.Data))
		for i, v := range t.Data {
			binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
		}
		buf.Write(data)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func shapeTuple(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return "(" + strconv.Itoa(shape[0]) + ",)"
	}
	items := make([]string, len(shape))
	for i, dim := range shape {
		items[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(items, ", ") + ")"
}

type npyHeader struct {
	descr        string
	fortranOrder bool
	shape        []int
}

// decodeNpy reads a version 1.x, 2.x or 3.x npy array of float or integer elements.
func decodeNpy(name string, data []byte) (*tensor.Tensor, error) {
	if len(data) < 10 || string(data[:6]) != npyMagic {
		return nil, fmt.Errorf("%v: invalid npy magic", name)
	}
	major := data[6]
	var headerLen, offset int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return nil, fmt.Errorf("%v: truncated npy header", name)
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		offset = 12
	default:
		return nil, fmt.Errorf("%v: unsupported npy version %d", name, major)
	}
	if len(data) < offset+headerLen {
		return nil, fmt.Errorf("%v: truncated npy header", name)
	}
	header, err := parseNpyHeader(string(data[offset : offset+headerLen]))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	if header.fortranOrder {
		return nil, fmt.Errorf("%v: fortran order is not supported", name)
	}
	payload := data[offset+headerLen:]
	count, err := elementCount(header.shape, len(payload))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	values, dType, err := decodeValues(header.descr, payload, count)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return tensor.NewWithType(name, dType, header.shape, values)
}

// elementCount returns the shape element count; every element takes at least one payload byte.
func elementCount(shape []int, payloadSize int) (int, error) {
	count := 1
	for _, dim := range shape {
		if dim == 0 {
			return 0, nil
		}
		if count > payloadSize/dim {
			return 0, fmt.Errorf("shape %v exceeds %d bytes of data", shape, payloadSize)
		}
		count *= dim
	}
	return count, nil
}

func decodeValues(descr string, payload []byte, count int) ([]float64, tensor.DType, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if strings.HasPrefix(descr, ">") {
		order = binary.BigEndian
	}
	kind := strings.TrimLeft(descr, "<>|=")
	size := 0
	switch kind {
	case "f2", "i2", "u2":
		size = 2
	case "f4", "i4", "u4":
		size = 4
	case "f8", "i8", "u8":
		size = 8
	case "u1", "i1", "b1":
		size = 1
	default:
		return nil, "", fmt.Errorf("unsupported dtype %q", descr)
	}
	if len(payload) < size*count {
		return nil, "", fmt.Errorf("expected %d bytes of data, got %d", size*count, len(payload))
	}
	values := make([]float64, count)
	dType := tensor.Float64
	for i := 0; i < count; i++ {
		chunk := payload[i*size : (i+1)*size]
		switch kind {
		case "f2":
			values[i] = float64(float16.Frombits(order.Uint16(chunk)).Float32())
			dType = tensor.Float32
		case "f4":
			values[i] = float64(math.Float32frombits(order.Uint32(chunk)))
			dType = tensor.Float32
		case "f8":
			values[i] = math.Float64frombits(order.Uint64(chunk))
		case "i2":
			values[i] = float64(int16(order.Uint16(chunk)))
		case "u2":
			values[i] = float64(order.Uint16(chunk))
		case "i4":
			values[i] = float64(int32(order.Uint32(chunk)))
		case "u4":
			values[i] = float64(order.Uint32(chunk))
		case "i8":
			values[i] = float64(int64(order.Uint64(chunk)))
		case "u8":
			values[i] = float64(order.Uint64(chunk))
		case "i1":
			values[i] = float64(int8(chunk[0]))
		default:
			values[i] = float64(chunk[0])
		}
	}
	return values, dType, nil
}

func parseNpyHeader(text string) (*npyHeader, error) {
	ret := &npyHeader{}
	descr, err := headerValue(text, "descr")
	if err != nil {
		return nil, err
	}
	ret.descr = strings.Trim(descr, "'\"")
	fortran, err := headerValue(text, "fortran_order")
	if err != nil {
		return nil, err
	}
	ret.fortranOrder = fortran == "True"
	shape, err := headerValue(text, "shape")
	if err != nil {
		return nil, err
	}
	shape = strings.Trim(shape, "()")
	for _, item := range strings.Split(shape, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		dim, err := strconv.Atoi(strings.TrimSuffix(item, "L"))
		if err != nil {
			return nil, fmt.Errorf("invalid shape %q", shape)
		}
		if dim < 0 {
			return nil, fmt.Errorf("invalid shape %q: negative dimension", shape)
		}
		ret.shape = append(ret.shape, dim)
	}
	return ret, nil
}

func headerValue(text, key string) (string, error) {
	index := strings.Index(text, "'"+key+"'")
	if index == -1 {
		return "", fmt.Errorf("npy header is missing %q", key)
	}
	rest := strings.TrimSpace(text[index+len(key)+2:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end == -1 {
			return "", fmt.Errorf("npy header has unterminated %q", key)
		}
		return rest[:end+1], nil
	}
	end := strings.IndexAny(rest, ",}")
	if end == -1 {
		return "", fmt.Errorf("npy header has unterminated %q", key)
	}
	return strings.TrimSpace(rest[:end]), nil
}
