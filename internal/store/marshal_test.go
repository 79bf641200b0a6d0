package store

import "testing"

func TestMarshalDetail(t *testing.T) {
	tests := []struct {
		name   string
		detail ExampleDetail
		want   string
	}{
		{"pass", ExampleDetail{}, `{}`},
		{"error", ExampleDetail{Error: "exit status 3"}, `{"error":"exit status 3"}`},
		{"mismatches", ExampleDetail{Mismatches: []string{"op3: output missing"}},
			`{"mismatches":["op3: output missing"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalDetail(tt.detail)
			if err != nil {
				t.Fatalf("marshalDetail() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("marshalDetail() = %s, want %s", got, tt.want)
			}

			back, err := unmarshalDetail(got)
			if err != nil {
				t.Fatalf("unmarshalDetail() failed: %v", err)
			}
			if back.Error != tt.detail.Error || len(back.Mismatches) != len(tt.detail.Mismatches) {
				t.Errorf("unmarshalDetail(%s) = %+v, want %+v", got, back, tt.detail)
			}
		})
	}
}

func TestUnmarshalDetail_Invalid(t *testing.T) {
	if _, err := unmarshalDetail("{not json"); err == nil {
		t.Error("expected error for malformed detail")
	}
}
