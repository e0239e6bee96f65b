package inference

import "testing"

func TestResolveModelID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"ResNet", "resnet-50"},
		{"DenseNet", "densenet-121"},
		{"MobileNet", "mobilenet-v2"},
		{"EfficientNet", "efficientnet-b0"},
		{"CNN", "cnn"},
		{"ViT", "vit-base"},
		{"SomethingElse", "mobilenet-v2"},
		{"", "mobilenet-v2"},
	}
	for _, tc := range tests {
		if got := ResolveModelID(tc.name); got != tc.want {
			t.Fatalf("ResolveModelID(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLogicalModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want string
	}{
		{"resnet-50", "ResNet"},
		{"mobilenet-v2", "MobileNet"},
		{"vit-base", "ViT"},
		{"custom-model", "custom-model"},
	}
	for _, tc := range tests {
		if got := LogicalModelName(tc.id); got != tc.want {
			t.Fatalf("LogicalModelName(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
