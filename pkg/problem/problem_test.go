package problem

import (
	"testing"

	"github.com/matzehuels/stemplan/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{
			name: "Valid",
			spec: Spec{Domain: "mechanics", Objects: []Object{{ID: "block"}, {ID: "ramp"}}},
		},
		{
			name: "EmptyObjectsIsStructurallyValid",
			spec: Spec{},
		},
		{
			name:    "DuplicateID",
			spec:    Spec{Objects: []Object{{ID: "a"}, {ID: "a"}}},
			wantErr: true,
		},
		{
			name:    "EmptyID",
			spec:    Spec{Objects: []Object{{ID: ""}}},
			wantErr: true,
		},
		{
			name:    "BadDomain",
			spec:    Spec{Domain: "optics!", Objects: []Object{{ID: "lens"}}},
			wantErr: true,
		},
		{
			name: "DomainWithSpaces",
			spec: Spec{Domain: "Current Electricity", Objects: []Object{{ID: "bat"}}},
		},
		{
			name: "BadSubSpec",
			spec: Spec{
				Objects:  []Object{{ID: "a"}},
				SubSpecs: []Spec{{Objects: []Object{{ID: "x"}, {ID: "x"}}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errors.ErrCodeInvalidSpec) {
				t.Errorf("error code = %v, want INVALID_SPEC", errors.GetCode(err))
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	s := Spec{
		Domain:   " Current Electricity",
		Objects:  []Object{{ID: "bat", Label: "Battery"}, {ID: "r1"}},
		Geometry: &Geometry{Shape: "Square"},
	}
	if got := s.NormalizedDomain(); got != "current_electricity" {
		t.Errorf("NormalizedDomain() = %q", got)
	}
	if got := s.Shape(); got != "square" {
		t.Errorf("Shape() = %q", got)
	}
	if ids := s.ObjectIDs(); len(ids) != 2 || ids[0] != "bat" {
		t.Errorf("ObjectIDs() = %v", ids)
	}
	o, ok := s.Object("bat")
	if !ok || o.DisplayLabel() != "Battery" {
		t.Errorf("Object(bat) = %+v, %v", o, ok)
	}
	if _, ok := s.Object("nope"); ok {
		t.Error("Object(nope) should not be found")
	}
	if (&Spec{}).Shape() != "" {
		t.Error("Shape() without geometry should be empty")
	}
}
