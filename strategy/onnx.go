package strategy

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Once

func initializeORT() error {
	var err error
	ortInit.Do(func() {
		libPath := "/usr/lib/libonnxruntime.so"
		switch runtime.GOOS {
		case "windows":
			libPath = "onnxruntime.dll"
		case "darwin":
			libPath = "libonnxruntime.dylib"
		}
		ort.SetSharedLibraryPath(libPath)
		err = ort.InitializeEnvironment()
	})
	return err
}

// ONNXDecider runs a trained classifier over the feature vector. The model
// takes a (1, featureLen) float32 input and emits three logits in the order
// hold, buy, sell.
type ONNXDecider struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func NewONNXDecider(modelPath string, featureWindow int) (*ONNXDecider, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx: no model path configured")
	}
	if err := initializeORT(); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	featureLen := featureWindow + 4

	inputShape := ort.NewShape(1, int64(featureLen))
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, featureLen))
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 3)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &ONNXDecider{session: session, input: inputTensor, output: outputTensor}, nil
}

func (d *ONNXDecider) Decide(features []float32) (Action, float32, error) {
	data := d.input.GetData()
	if len(features) != len(data) {
		return ActionHold, 0, fmt.Errorf("onnx: feature length %d, model expects %d", len(features), len(data))
	}
	copy(data, features)

	if err := d.session.Run(); err != nil {
		return ActionHold, 0, fmt.Errorf("onnx: inference: %w", err)
	}

	logits := d.output.GetData()
	if len(logits) != 3 {
		return ActionHold, 0, fmt.Errorf("onnx: expected 3 outputs, got %d", len(logits))
	}

	best := 0
	for i := 1; i < 3; i++ {
		if logits[i] > logits[best] {
			best = i
		}
	}
	actions := [3]Action{ActionHold, ActionBuy, ActionSell}
	return actions[best], softmaxAt(logits, best), nil
}

func (d *ONNXDecider) Close() error {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	if d.output != nil {
		d.output.Destroy()
	}
	return nil
}

func softmaxAt(logits []float32, i int) float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - max))
	}
	return float32(math.Exp(float64(logits[i]-max)) / sum)
}
