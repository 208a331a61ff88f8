package pyor

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/elliotchance/orderedmap/v2"
)

// magic tags a saved HPYLM file so Load fails fast on a foreign or
// truncated file instead of misinterpreting its bytes.
var magic = [4]byte{'H', 'P', 'Y', 'M'}

// formatVersion lets a later release extend the layout without
// breaking reads of files written by this one.
const formatVersion = 1

// Save writes the full tree plus hyperparameters to path in a
// versioned, explicit binary schema (spec §4.D favors a schema over
// reflection-based encoding so the on-disk layout is stable and
// auditable independent of Go struct tags).
func (h *HPYLM) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &DeserializationError{Path: path, Detail: err.Error()}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := h.encode(w); err != nil {
		return &DeserializationError{Path: path, Detail: err.Error()}
	}
	if err := w.Flush(); err != nil {
		return &DeserializationError{Path: path, Detail: err.Error()}
	}
	return nil
}

func (h *HPYLM) encode(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(formatVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.G0); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(h.MaxDepth)); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, h.D); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, h.Theta); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.DiscountPriorA); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.DiscountPriorB); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.ConcentrationPriorA); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.ConcentrationPriorB); err != nil {
		return err
	}
	return encodeNode(w, h.Root)
}

// encodeNode writes depth, contextID, the dish arrangement, and every
// child recursively, in the deterministic order the orderedmap
// iteration guarantees (Testable Property P6: identical input produces
// a bit-identical file).
func encodeNode(w io.Writer, n *Node) error {
	if err := binary.Write(w, binary.LittleEndian, int32(n.Depth)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(n.ContextID)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, int32(n.Arrangement.Len())); err != nil {
		return err
	}
	for el := n.Arrangement.Front(); el != nil; el = el.Next() {
		if err := binary.Write(w, binary.LittleEndian, int32(el.Key)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int32(len(el.Value))); err != nil {
			return err
		}
		for _, count := range el.Value {
			if err := binary.Write(w, binary.LittleEndian, int32(count)); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, int32(n.Children.Len())); err != nil {
		return err
	}
	for el := n.Children.Front(); el != nil; el = el.Next() {
		if err := binary.Write(w, binary.LittleEndian, int32(el.Key)); err != nil {
			return err
		}
		if err := encodeNode(w, el.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeFloat64Slice(w io.Writer, v []float64) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(v))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v)
}

// Load reads a file written by Save and reconstructs the tree.
func Load(path string) (*HPYLM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DeserializationError{Path: path, Detail: err.Error()}
	}
	defer f.Close()

	h, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, &DeserializationError{Path: path, Detail: err.Error()}
	}
	return h, nil
}

func decode(r io.Reader) (*HPYLM, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, err
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("bad magic %q, expected %q", gotMagic, magic)
	}

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", version)
	}

	h := &HPYLM{}
	if err := binary.Read(r, binary.LittleEndian, &h.G0); err != nil {
		return nil, err
	}
	var maxDepth int32
	if err := binary.Read(r, binary.LittleEndian, &maxDepth); err != nil {
		return nil, err
	}
	h.MaxDepth = int(maxDepth)

	var err error
	if h.D, err = readFloat64Slice(r); err != nil {
		return nil, err
	}
	if h.Theta, err = readFloat64Slice(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.DiscountPriorA); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.DiscountPriorB); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.ConcentrationPriorA); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.ConcentrationPriorB); err != nil {
		return nil, err
	}

	root, err := decodeNode(r, nil)
	if err != nil {
		return nil, err
	}
	h.Root = root
	return h, nil
}

func decodeNode(r io.Reader, parent *Node) (*Node, error) {
	var depth, contextID int32
	if err := binary.Read(r, binary.LittleEndian, &depth); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &contextID); err != nil {
		return nil, err
	}

	n := &Node{
		Depth:       int(depth),
		ContextID:   int(contextID),
		Parent:      parent,
		Children:    orderedmap.NewOrderedMap[int, *Node](),
		Arrangement: orderedmap.NewOrderedMap[int, []int](),
	}

	var numDishes int32
	if err := binary.Read(r, binary.LittleEndian, &numDishes); err != nil {
		return nil, err
	}
	for i := int32(0); i < numDishes; i++ {
		var dish, numTables int32
		if err := binary.Read(r, binary.LittleEndian, &dish); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &numTables); err != nil {
			return nil, err
		}
		tables := make([]int, numTables)
		for j := int32(0); j < numTables; j++ {
			var count int32
			if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
				return nil, err
			}
			tables[j] = int(count)
		}
		n.Arrangement.Set(int(dish), tables)
	}

	var numChildren int32
	if err := binary.Read(r, binary.LittleEndian, &numChildren); err != nil {
		return nil, err
	}
	for i := int32(0); i < numChildren; i++ {
		var key int32
		if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
			return nil, err
		}
		child, err := decodeNode(r, n)
		if err != nil {
			return nil, err
		}
		n.Children.Set(int(key), child)
	}

	return n, nil
}

func readFloat64Slice(r io.Reader) ([]float64, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	v := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
