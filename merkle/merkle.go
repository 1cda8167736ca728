// Package merkle builds domain-separated SHAKE-256 Merkle trees over the
// public statements of a batch.
package merkle

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Size is the node width in bytes.
const Size = 32

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// Hash is a tree node.
type Hash [Size]byte

// Tree is a full binary Merkle tree; missing leaves are padded with the hash of
// the empty leaf.
type Tree struct {
	n      int
	layers [][]Hash
}

// Build builds a balanced tree from leaves. An empty leaf set yields a tree
// whose root is the empty-leaf hash.
func Build(leaves [][]byte) *Tree {
	n := len(leaves)
	size := 1
	for size < n {
		size <<= 1
	}
	layer := make([]Hash, size)
	for i := 0; i < n; i++ {
		layer[i] = hashLeaf(leaves[i])
	}
	for i := n; i < size; i++ {
		layer[i] = hashLeaf(nil)
	}
	layers := [][]Hash{layer}
	for sz := size; sz > 1; sz >>= 1 {
		prev := layers[len(layers)-1]
		next := make([]Hash, sz/2)
		for i := 0; i < sz; i += 2 {
			next[i/2] = hashNode(prev[i], prev[i+1])
		}
		layers = append(layers, next)
	}
	return &Tree{n: n, layers: layers}
}

// Root returns the root hash.
func (t *Tree) Root() Hash {
	return t.layers[len(t.layers)-1][0]
}

// Len is the number of real leaves.
func (t *Tree) Len() int { return t.n }

// Path returns the sibling path for leaf idx.
func (t *Tree) Path(idx int) ([]Hash, error) {
	if idx < 0 || idx >= t.n {
		return nil, fmt.Errorf("leaf %d out of range [0,%d)", idx, t.n)
	}
	path := make([]Hash, len(t.layers)-1)
	for lvl := range path {
		path[lvl] = t.layers[lvl][idx^1]
		idx >>= 1
	}
	return path, nil
}

// VerifyPath checks leaf→root via path.
func VerifyPath(leaf []byte, path []Hash, root Hash, idx int) bool {
	h := hashLeaf(leaf)
	for _, sib := range path {
		if idx&1 == 0 {
			h = hashNode(h, sib)
		} else {
			h = hashNode(sib, h)
		}
		idx >>= 1
	}
	return bytes.Equal(h[:], root[:])
}

func hashLeaf(leaf []byte) Hash {
	return shake(leafPrefix, leaf)
}

func hashNode(l, r Hash) Hash {
	var buf [2 * Size]byte
	copy(buf[:], l[:])
	copy(buf[Size:], r[:])
	return shake(nodePrefix, buf[:])
}

func shake(prefix byte, data []byte) Hash {
	var out Hash
	h := sha3.NewShake256()
	_, _ = h.Write([]byte{prefix})
	_, _ = h.Write(data)
	_, _ = h.Read(out[:])
	return out
}
