package registry

// Builtin returns the registry of recognizers the app ships with: the ten
// trained digit networks plus the two heuristic recognizers that need no
// model artifact. Network metadata (parameter counts, held-out accuracy)
// comes from the training runs that produced the artifacts.
func Builtin() *Registry {
	r := New()
	for _, d := range builtinModels {
		d := d
		r.Add(&d)
	}
	return r
}

var builtinModels = []Descriptor{
	{
		ID:          "model_1",
		Label:       "Simple CNN",
		Description: "Two convolution blocks with max pooling; the baseline architecture.",
		Runtime:     RuntimeONNX,
		Path:        "model_1.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  1_200_000,
		Accuracy:    0.985,
	},
	{
		ID:          "model_2",
		Label:       "Deep CNN",
		Description: "Six convolution layers with batch normalization.",
		Runtime:     RuntimeONNX,
		Path:        "model_2.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  2_800_000,
		Accuracy:    0.992,
	},
	{
		ID:          "model_3",
		Label:       "ResNet-like",
		Description: "Residual blocks with skip connections.",
		Runtime:     RuntimeONNX,
		Path:        "model_3.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  1_500_000,
		Accuracy:    0.991,
	},
	{
		ID:          "model_4",
		Label:       "DenseNet-like",
		Description: "Densely connected convolution blocks.",
		Runtime:     RuntimeOpenCV,
		Path:        "model_4.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  1_800_000,
		Accuracy:    0.990,
	},
	{
		ID:          "model_5",
		Label:       "Wide CNN",
		Description: "Wide convolution layers with heavy dropout.",
		Runtime:     RuntimeONNX,
		Path:        "model_5.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  3_200_000,
		Accuracy:    0.993,
	},
	{
		ID:          "model_6",
		Label:       "MobileNet-like",
		Description: "Depthwise separable convolutions for small size.",
		Runtime:     RuntimeONNX,
		Path:        "model_6.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  800_000,
		Accuracy:    0.988,
	},
	{
		ID:          "model_7",
		Label:       "Attention CNN",
		Description: "Convolution stack with a channel attention block.",
		Runtime:     RuntimeONNX,
		Path:        "model_7.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  1_600_000,
		Accuracy:    0.991,
	},
	{
		ID:          "model_8",
		Label:       "Ensemble CNN",
		Description: "Three parallel towers averaged at the head.",
		Runtime:     RuntimeOpenCV,
		Path:        "model_8.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  1_400_000,
		Accuracy:    0.990,
	},
	{
		ID:          "model_9",
		Label:       "Transformer CNN",
		Description: "Convolution stem feeding transformer encoder layers.",
		Runtime:     RuntimeONNX,
		Path:        "model_9.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  2_100_000,
		Accuracy:    0.992,
	},
	{
		ID:          "model_10",
		Label:       "Lightweight CNN",
		Description: "Minimal two-layer network tuned for latency.",
		Runtime:     RuntimeONNX,
		Path:        "model_10.onnx",
		Input:       [2]int{50, 50},
		Channels:    1,
		Parameters:  300_000,
		Accuracy:    0.980,
	},
	{
		ID:          "tesseract",
		Label:       "Tesseract OCR",
		Description: "OCR engine restricted to the digit character set.",
		Runtime:     RuntimeTesseract,
		Input:       [2]int{28, 28},
		Channels:    1,
	},
	{
		ID:          "prototype",
		Label:       "Prototype Match",
		Description: "Perceptual-hash nearest neighbor over rendered digit prototypes.",
		Runtime:     RuntimePrototype,
		Input:       [2]int{28, 28},
		Channels:    1,
	},
}
