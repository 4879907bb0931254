package inference

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var runtimeMu sync.Mutex

// InitRuntime loads the ONNX Runtime shared library. It is a no-op once the
// environment is up.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}

	slog.Info("[ONNXRuntime] Environment initialized",
		slog.String("library", libPath))
	return nil
}

func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNXModel runs a single-input, single-output ONNX graph. The input and
// output tensors are allocated once and reused, so Run holds a lock for the
// bind-execute-read sequence.
type ONNXModel struct {
	mu      sync.Mutex
	path    string
	input   TensorSpec
	output  TensorSpec
	session *ort.AdvancedSession
	in      ort.Value
	out     *ort.Tensor[float32]
	bind    func(tokens []int64)
}

func OpenONNXModel(path, libPath string) (*ONNXModel, error) {
	if err := InitRuntime(libPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read model signature: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("model must declare exactly one input and one output, got %d and %d",
			len(inputs), len(outputs))
	}

	m := &ONNXModel{
		path:   path,
		input:  specFromInfo(inputs[0]),
		output: specFromInfo(outputs[0]),
	}
	if err := CheckOutput(m.output); err != nil {
		return nil, err
	}

	if err := m.allocate(); err != nil {
		_ = m.Close()
		return nil, err
	}

	slog.Info("[ONNXModel] Model loaded",
		slog.String("path", path),
		slog.String("input", m.input.String()),
		slog.String("output", m.output.String()))

	return m, nil
}

func (m *ONNXModel) allocate() error {
	inShape := concreteShape(m.input.Shape)

	switch m.input.DType {
	case DTypeInt64:
		t, err := ort.NewEmptyTensor[int64](inShape)
		if err != nil {
			return fmt.Errorf("allocate input tensor: %w", err)
		}
		m.in = t
		m.bind = func(tokens []int64) {
			copy(t.GetData(), tokens)
		}
	case DTypeInt32:
		t, err := ort.NewEmptyTensor[int32](inShape)
		if err != nil {
			return fmt.Errorf("allocate input tensor: %w", err)
		}
		m.in = t
		m.bind = func(tokens []int64) {
			data := t.GetData()
			for i, id := range tokens {
				data[i] = int32(id)
			}
		}
	default:
		return fmt.Errorf("model input %s is not an integer tensor", m.input)
	}

	out, err := ort.NewEmptyTensor[float32](concreteShape(m.output.Shape))
	if err != nil {
		return fmt.Errorf("allocate output tensor: %w", err)
	}
	m.out = out

	session, err := ort.NewAdvancedSession(m.path,
		[]string{m.input.Name}, []string{m.output.Name},
		[]ort.Value{m.in}, []ort.Value{m.out}, nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	m.session = session

	return nil
}

func (m *ONNXModel) Input() TensorSpec { return m.input }

func (m *ONNXModel) Output() TensorSpec { return m.output }

func (m *ONNXModel) Run(tokens []int64) (float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0, errors.New("model is closed")
	}
	if err := checkInput(m.input, len(tokens)); err != nil {
		return 0, err
	}

	m.bind(tokens)
	if err := m.session.Run(); err != nil {
		return 0, err
	}

	data := m.out.GetData()
	if len(data) == 0 {
		return 0, errors.New("model produced no output")
	}
	return data[0], nil
}

func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.in != nil {
		errs = append(errs, m.in.Destroy())
		m.in = nil
	}
	if m.out != nil {
		errs = append(errs, m.out.Destroy())
		m.out = nil
	}
	return errors.Join(errs...)
}

func specFromInfo(info ort.InputOutputInfo) TensorSpec {
	return TensorSpec{
		Name:  info.Name,
		Shape: append([]int64(nil), info.Dimensions...),
		DType: dtypeFromORT(info.DataType),
	}
}

func dtypeFromORT(t ort.TensorElementDataType) DType {
	switch t {
	case ort.TensorElementDataTypeInt32:
		return DTypeInt32
	case ort.TensorElementDataTypeInt64:
		return DTypeInt64
	case ort.TensorElementDataTypeFloat:
		return DTypeFloat32
	default:
		return DTypeUnknown
	}
}

// concreteShape binds dynamic dimensions to 1; requests are never batched.
func concreteShape(dims []int64) ort.Shape {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		if d < 0 {
			d = 1
		}
		shape[i] = d
	}
	return ort.NewShape(shape...)
}
