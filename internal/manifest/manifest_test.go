package manifest

import (
	"errors"
	"testing"
)

const validCollection = `
files:
  - path: tests/login.yml
    type: test
    content: |
      steps:
        - visit: /login
  - path: fixtures/users.yml
    type: resource
    content: "alice,bob"
  - path: tests/checkout.yml
    type: test
    content: |
      steps:
        - visit: /checkout
`

func TestParse_Valid(t *testing.T) {
	collection, err := Parse(validCollection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(collection.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(collection.Files))
	}
	if collection.Files[0].Path != "tests/login.yml" {
		t.Errorf("unexpected first path: %s", collection.Files[0].Path)
	}
	if collection.Files[1].Type != "resource" {
		t.Errorf("unexpected type: %s", collection.Files[1].Type)
	}
}

func TestParse_Unparseable(t *testing.T) {
	_, err := Parse("files: [\n")
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
}

func TestValidate_Valid(t *testing.T) {
	collection, _ := Parse(validCollection)
	if err := Validate(collection); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Empty(t *testing.T) {
	if err := Validate(&FileCollection{}); !errors.Is(err, ErrEmptyCollection) {
		t.Errorf("expected ErrEmptyCollection, got %v", err)
	}
	if err := Validate(nil); !errors.Is(err, ErrEmptyCollection) {
		t.Errorf("expected ErrEmptyCollection for nil, got %v", err)
	}
}

func TestValidate_EmptyPath(t *testing.T) {
	collection := &FileCollection{Files: []File{
		{Path: "", Type: "test", Content: "x"},
	}}

	err := Validate(collection)
	if !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestValidate_InvalidType(t *testing.T) {
	collection := &FileCollection{Files: []File{
		{Path: "a.yml", Type: "script", Content: "x"},
	}}

	err := Validate(collection)
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("expected ValidationError")
	}
	if verr.Path != "a.yml" || verr.Field != "type" {
		t.Errorf("unexpected error details: %+v", verr)
	}
}

func TestValidate_DuplicatePath(t *testing.T) {
	collection := &FileCollection{Files: []File{
		{Path: "a.yml", Type: "test", Content: "x"},
		{Path: "a.yml", Type: "test", Content: "y"},
	}}

	if err := Validate(collection); !errors.Is(err, ErrDuplicatePath) {
		t.Errorf("expected ErrDuplicatePath, got %v", err)
	}
}

func TestValidate_NoTests(t *testing.T) {
	collection := &FileCollection{Files: []File{
		{Path: "a.yml", Type: "resource", Content: "x"},
	}}

	if err := Validate(collection); !errors.Is(err, ErrNoTests) {
		t.Errorf("expected ErrNoTests, got %v", err)
	}
}

func TestTestPaths_Order(t *testing.T) {
	collection, _ := Parse(validCollection)

	paths := collection.TestPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 test paths, got %d", len(paths))
	}
	// Порядок объявления сохраняется
	if paths[0] != "tests/login.yml" || paths[1] != "tests/checkout.yml" {
		t.Errorf("unexpected order: %v", paths)
	}
}
