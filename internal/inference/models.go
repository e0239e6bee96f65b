package inference

// Logical model names used by clients, mapped to the ids the external
// service expects. Unknown names fall back to MobileNet.
var modelMapping = map[string]string{
	"ResNet":       "resnet-50",
	"DenseNet":     "densenet-121",
	"MobileNet":    "mobilenet-v2",
	"EfficientNet": "efficientnet-b0",
	"CNN":          "cnn",
	"ViT":          "vit-base",
}

var reverseMapping = map[string]string{
	"resnet-50":    "ResNet",
	"densenet-121": "DenseNet",
	"mobilenet-v2": "MobileNet",
	"vit-base":     "ViT",
}

const DefaultModelID = "mobilenet-v2"

// ResolveModelID maps a logical model name to the external service id.
func ResolveModelID(name string) string {
	if id, ok := modelMapping[name]; ok {
		return id
	}
	return DefaultModelID
}

// LogicalModelName maps an external id back to the client-facing name,
// passing unknown ids through unchanged.
func LogicalModelName(id string) string {
	if name, ok := reverseMapping[id]; ok {
		return name
	}
	return id
}
