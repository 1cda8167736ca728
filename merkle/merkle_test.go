package merkle

import (
	"fmt"
	"testing"
)

func leaves(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("statement-%d", i))
	}
	return out
}

func TestPathsVerify(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 11} {
		ls := leaves(n)
		tree := Build(ls)
		if tree.Len() != n {
			t.Fatalf("n=%d: Len=%d", n, tree.Len())
		}
		root := tree.Root()
		for i := range ls {
			path, err := tree.Path(i)
			if err != nil {
				t.Fatalf("n=%d path %d: %v", n, i, err)
			}
			if !VerifyPath(ls[i], path, root, i) {
				t.Fatalf("n=%d: path %d does not verify", n, i)
			}
			if VerifyPath([]byte("forged"), path, root, i) {
				t.Fatalf("n=%d: forged leaf %d verified", n, i)
			}
		}
	}
}

func TestRootDependsOnOrder(t *testing.T) {
	ls := leaves(4)
	a := Build(ls).Root()
	ls[0], ls[1] = ls[1], ls[0]
	if Build(ls).Root() == a {
		t.Fatalf("swapping leaves kept the root")
	}
}

func TestPathOutOfRange(t *testing.T) {
	tree := Build(leaves(3))
	if _, err := tree.Path(3); err == nil {
		t.Fatalf("expected error for padding leaf")
	}
	if _, err := tree.Path(-1); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

func TestEmptyTree(t *testing.T) {
	tree := Build(nil)
	if tree.Root() != hashLeaf(nil) {
		t.Fatalf("empty tree root mismatch")
	}
}
