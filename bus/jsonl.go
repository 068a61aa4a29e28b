package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path"

	"github.com/zeu5/dist-qlearning/types"
	"github.com/zeu5/dist-qlearning/util"
)

// JSONLSink appends every transition as one JSON line
type JSONLSink struct {
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

var _ Sink = &JSONLSink{}

func NewJSONLSink(filePath string) (*JSONLSink, error) {
	if err := util.EnsureDir(path.Dir(filePath)); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	return &JSONLSink{
		file: f,
		w:    w,
		enc:  json.NewEncoder(w),
	}, nil
}

func (s *JSONLSink) Write(_ context.Context, t types.Transition) error {
	return s.enc.Encode(t)
}

func (s *JSONLSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
