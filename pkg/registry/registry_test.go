package registry

import (
	"testing"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

func newContainer(name string, deps ...string) *types.Container {
	return &types.Container{Name: name, Type: types.ContainerTypeBase, Dependencies: deps}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New([]*types.Container{newContainer("base"), newContainer("base")})
	if err == nil {
		t.Fatal("expected an error for duplicate container names")
	}
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindConfigParse {
		t.Fatalf("err = %v, want a KindConfigParse perror.Error", err)
	}
}

func TestResolveUnknownContainer(t *testing.T) {
	r, err := New([]*types.Container{newContainer("base")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = r.Resolve("ghost")
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindUnknownContainer {
		t.Fatalf("err = %v, want a KindUnknownContainer perror.Error", err)
	}
}

func TestDependencyClosureTopologicalOrder(t *testing.T) {
	base := newContainer("base")
	slice := newContainer("dev", "base")
	link := newContainer("dev-link", "dev")

	r, err := New([]*types.Container{link, slice, base})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	order, err := r.DependencyClosure([]string{"dev-link"})
	if err != nil {
		t.Fatalf("DependencyClosure() error = %v", err)
	}

	names := make([]string, len(order))
	for i, c := range order {
		names[i] = c.Name
	}
	want := []string{"base", "dev", "dev-link"}
	if len(names) != len(want) {
		t.Fatalf("DependencyClosure() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("DependencyClosure() = %v, want %v", names, want)
		}
	}
}

func TestDependencyClosureDetectsCycle(t *testing.T) {
	a := newContainer("a", "b")
	b := newContainer("b", "a")

	r, err := New([]*types.Container{a, b})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.DependencyClosure([]string{"a"})
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindCyclicDependency {
		t.Fatalf("err = %v, want a KindCyclicDependency perror.Error", err)
	}
}

func TestDependencyClosureDedupesSharedDependency(t *testing.T) {
	base := newContainer("base")
	a := newContainer("a", "base")
	b := newContainer("b", "base")

	r, err := New([]*types.Container{base, a, b})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	order, err := r.DependencyClosure([]string{"a", "b"})
	if err != nil {
		t.Fatalf("DependencyClosure() error = %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("DependencyClosure() returned %d containers, want 3 (base counted once)", len(order))
	}
	if order[0].Name != "base" {
		t.Fatalf("expected base first in topological order, got %s", order[0].Name)
	}
}

func TestListPreservesDeclarationOrder(t *testing.T) {
	a := newContainer("a")
	b := newContainer("b")
	r, err := New([]*types.Container{a, b})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	list := r.List()
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "b" {
		t.Fatalf("List() = %v, want [a b] in declaration order", list)
	}
}
