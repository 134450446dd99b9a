// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"slices"
	"testing"

	"bcm/internal/models"
)

func TestTaxonomies(t *testing.T) {
	s := NewTermStore(seededDB(t))

	taxes, err := s.Taxonomies()
	if err != nil {
		t.Fatalf("Taxonomies: %v", err)
	}
	if len(taxes) != 2 || taxes[0].Name != "category" || taxes[1].Name != "post_tag" {
		t.Fatalf("unexpected taxonomies: %+v", taxes)
	}

	cat, err := s.Taxonomy("category")
	if err != nil || cat == nil || !cat.Hierarchical {
		t.Errorf("category: got %+v, %v", cat, err)
	}
	tag, err := s.Taxonomy("post_tag")
	if err != nil || tag == nil || tag.Hierarchical {
		t.Errorf("post_tag: got %+v, %v", tag, err)
	}
	missing, err := s.Taxonomy("nope")
	if err != nil || missing != nil {
		t.Errorf("missing taxonomy: got %+v, %v", missing, err)
	}
}

func TestListOrder(t *testing.T) {
	s := NewTermStore(seededDB(t))

	terms, err := s.List("category")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Uncategorized", "Fruit", "Apple", "Pear", "Vegetables", "Root vegetables", "Carrot"}
	if got := names(terms); !slices.Equal(got, want) {
		t.Errorf("List: got %v, want %v", got, want)
	}

	empty, err := s.List("nope")
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown taxonomy: got %v, %v", empty, err)
	}
}

func TestFindNotFound(t *testing.T) {
	s := NewTermStore(seededDB(t))

	if term, err := s.FindByID("category", 9999); err != nil || term != nil {
		t.Errorf("FindByID: got %+v, %v", term, err)
	}
	if term, err := s.FindBySlug("category", "nope"); err != nil || term != nil {
		t.Errorf("FindBySlug: got %+v, %v", term, err)
	}
	// A term id of another taxonomy is not found.
	seasonal := termID(t, s, "post_tag", "seasonal")
	if term, err := s.FindByID("category", seasonal); err != nil || term != nil {
		t.Errorf("cross taxonomy FindByID: got %+v, %v", term, err)
	}
}

func TestCreate(t *testing.T) {
	s := NewTermStore(seededDB(t))
	fruit := termID(t, s, "category", "fruit")

	created, err := s.Create(&models.Term{
		Taxonomy: "category", Name: "Banana", Slug: "banana", Description: "Yellow", Parent: fruit,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.Parent != fruit || created.Count != 0 || created.Description != "Yellow" {
		t.Errorf("unexpected created term: %+v", created)
	}

	terms, _ := s.List("category")
	want := []string{"Uncategorized", "Fruit", "Apple", "Pear", "Vegetables", "Root vegetables", "Carrot", "Banana"}
	if got := names(terms); !slices.Equal(got, want) {
		t.Errorf("List after create: got %v, want %v", got, want)
	}
}

func TestCreateRejectsBadParent(t *testing.T) {
	s := NewTermStore(seededDB(t))
	seasonal := termID(t, s, "post_tag", "seasonal")

	for _, parent := range []int64{9999, seasonal, -1} {
		_, err := s.Create(&models.Term{Taxonomy: "category", Name: "X", Slug: "x", Parent: parent})
		if !errors.Is(err, ErrParentNotFound) {
			t.Errorf("parent %d: got %v, want ErrParentNotFound", parent, err)
		}
	}
}

func TestCreateDuplicateSlug(t *testing.T) {
	s := NewTermStore(seededDB(t))

	_, err := s.Create(&models.Term{Taxonomy: "category", Name: "Fruit 2", Slug: "fruit"})
	if err == nil {
		t.Error("expected unique violation on duplicate slug")
	}
	// The same slug is free in another taxonomy.
	if _, err := s.Create(&models.Term{Taxonomy: "post_tag", Name: "fruit", Slug: "fruit"}); err != nil {
		t.Errorf("slug in other taxonomy: %v", err)
	}
}

func TestSlugExistsAndNameTaken(t *testing.T) {
	s := NewTermStore(seededDB(t))
	fruit := termID(t, s, "category", "fruit")
	apple := termID(t, s, "category", "apple")

	if ok, _ := s.SlugExists("category", "apple", 0); !ok {
		t.Error("apple slug should exist")
	}
	if ok, _ := s.SlugExists("category", "apple", apple); ok {
		t.Error("apple slug should be free for apple itself")
	}
	if ok, _ := s.SlugExists("post_tag", "apple", 0); ok {
		t.Error("apple slug should be free in post_tag")
	}

	if ok, _ := s.NameTaken("category", "APPLE", fruit, 0); !ok {
		t.Error("Apple should be taken under Fruit")
	}
	if ok, _ := s.NameTaken("category", "Apple", 0, 0); ok {
		t.Error("Apple should be free at the root")
	}
	if ok, _ := s.NameTaken("category", "Apple", fruit, apple); ok {
		t.Error("Apple should be free for apple itself")
	}
}

func TestUpdate(t *testing.T) {
	s := NewTermStore(seededDB(t))
	apple := termID(t, s, "category", "apple")
	veg := termID(t, s, "category", "vegetables")

	err := s.Update(&models.Term{
		ID: apple, Taxonomy: "category", Name: "Green apple", Slug: "green-apple", Description: "Sour", Parent: veg,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.FindByID("category", apple)
	if got.Name != "Green apple" || got.Slug != "green-apple" || got.Description != "Sour" || got.Parent != veg {
		t.Errorf("unexpected updated term: %+v", got)
	}
	if got.Count != 2 {
		t.Errorf("count should be untouched: got %d", got.Count)
	}
}

func TestUpdateErrors(t *testing.T) {
	s := NewTermStore(seededDB(t))
	veg := termID(t, s, "category", "vegetables")
	carrot := termID(t, s, "category", "carrot")

	err := s.Update(&models.Term{ID: veg, Taxonomy: "category", Name: "Vegetables", Slug: "vegetables", Parent: carrot})
	if !errors.Is(err, ErrCycle) {
		t.Errorf("descendant parent: got %v, want ErrCycle", err)
	}

	err = s.Update(&models.Term{ID: 9999, Taxonomy: "category", Name: "Ghost", Slug: "ghost"})
	if !errors.Is(err, ErrTermNotFound) {
		t.Errorf("missing term: got %v, want ErrTermNotFound", err)
	}
}

func TestUpdateParent(t *testing.T) {
	s := NewTermStore(seededDB(t))
	fruit := termID(t, s, "category", "fruit")
	carrot := termID(t, s, "category", "carrot")
	roots := termID(t, s, "category", "root-vegetables")

	if err := s.UpdateParent("category", carrot, fruit); err != nil {
		t.Fatalf("UpdateParent: %v", err)
	}
	if p := parentOf(t, s, "category", carrot); p != fruit {
		t.Errorf("carrot parent: got %d, want %d", p, fruit)
	}

	// The moved term lands after its new siblings.
	terms, _ := s.List("category")
	var fruitChildren []string
	for _, term := range terms {
		if term.Parent == fruit {
			fruitChildren = append(fruitChildren, term.Name)
		}
	}
	if want := []string{"Apple", "Pear", "Carrot"}; !slices.Equal(fruitChildren, want) {
		t.Errorf("fruit children: got %v, want %v", fruitChildren, want)
	}

	// Moving to the root.
	if err := s.UpdateParent("category", roots, 0); err != nil {
		t.Fatalf("UpdateParent to root: %v", err)
	}
	if p := parentOf(t, s, "category", roots); p != 0 {
		t.Errorf("roots parent: got %d, want 0", p)
	}

	// Moving to the current parent is accepted.
	if err := s.UpdateParent("category", carrot, fruit); err != nil {
		t.Errorf("same parent: %v", err)
	}
}

func TestUpdateParentErrors(t *testing.T) {
	s := NewTermStore(seededDB(t))
	veg := termID(t, s, "category", "vegetables")
	carrot := termID(t, s, "category", "carrot")
	seasonal := termID(t, s, "post_tag", "seasonal")

	tests := []struct {
		name   string
		id     int64
		parent int64
		want   error
	}{
		{"self", veg, veg, ErrCycle},
		{"descendant", veg, carrot, ErrCycle},
		{"missing parent", carrot, 9999, ErrParentNotFound},
		{"other taxonomy parent", carrot, seasonal, ErrParentNotFound},
		{"missing term", 9999, 0, ErrTermNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.UpdateParent("category", tt.id, tt.parent); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	// A rejected move leaves the tree untouched.
	if p := parentOf(t, s, "category", veg); p != 0 {
		t.Errorf("vegetables parent changed to %d", p)
	}
}

func TestDeleteMovesChildrenUp(t *testing.T) {
	s := NewTermStore(seededDB(t))
	veg := termID(t, s, "category", "vegetables")
	roots := termID(t, s, "category", "root-vegetables")
	carrot := termID(t, s, "category", "carrot")

	action, err := s.Delete("category", roots)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if action != models.ChildrenMoved {
		t.Errorf("action: got %q, want %q", action, models.ChildrenMoved)
	}
	if p := parentOf(t, s, "category", carrot); p != veg {
		t.Errorf("carrot parent: got %d, want %d", p, veg)
	}
	if term, _ := s.FindByID("category", roots); term != nil {
		t.Error("deleted term still present")
	}

	action, err = s.Delete("category", carrot)
	if err != nil || action != models.ChildrenNone {
		t.Errorf("delete leaf: got %q, %v", action, err)
	}

	if _, err := s.Delete("category", carrot); !errors.Is(err, ErrTermNotFound) {
		t.Errorf("delete twice: got %v, want ErrTermNotFound", err)
	}
}

func TestDeleteRootMovesChildrenToRoot(t *testing.T) {
	s := NewTermStore(seededDB(t))
	fruit := termID(t, s, "category", "fruit")
	apple := termID(t, s, "category", "apple")

	if _, err := s.Delete("category", fruit); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if p := parentOf(t, s, "category", apple); p != 0 {
		t.Errorf("apple parent: got %d, want 0", p)
	}
}

func TestParentOptions(t *testing.T) {
	s := NewTermStore(seededDB(t))
	veg := termID(t, s, "category", "vegetables")

	all, err := s.ParentOptions("category", 0)
	if err != nil {
		t.Fatalf("ParentOptions: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected 7 options, got %d", len(all))
	}
	wantDepth := map[string]int{"Uncategorized": 0, "Fruit": 0, "Apple": 1, "Root vegetables": 1, "Carrot": 2}
	for _, o := range all {
		if d, ok := wantDepth[o.Name]; ok && d != o.Depth {
			t.Errorf("%s depth: got %d, want %d", o.Name, o.Depth, d)
		}
	}

	opts, err := s.ParentOptions("category", veg)
	if err != nil {
		t.Fatalf("ParentOptions(veg): %v", err)
	}
	var got []string
	for _, o := range opts {
		got = append(got, o.Name)
	}
	if want := []string{"Uncategorized", "Fruit", "Apple", "Pear"}; !slices.Equal(got, want) {
		t.Errorf("options excluding vegetables: got %v, want %v", got, want)
	}
}
