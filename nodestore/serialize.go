package nodestore

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/wkalt/betree/codec"
	"github.com/wkalt/betree/message"
	"github.com/wkalt/betree/util"
	"github.com/wkalt/betree/wst"
)

/*
The wire format follows the field order the serialization contract commits
to: pivots, then elements, then the fixed-width epsilon/level/node_id/
adoption_flag tail. Pivots and elements are each a length-prefixed
goccy/go-json array, since neither K nor V is fixed-width and node fanout
varies too much to justify a bespoke binary array layout the way leaf_node's
fixed MCAP offsets did for the teacher. A leading version byte lets a future
format change coexist with nodes written by an older version without
guessing from content.
*/

////////////////////////////////////////////////////////////////////////////////

const nodeFormatVersion = uint8(1)

type pivotWire struct {
	Key       []byte `json:"key"`
	ChildID   uint64 `json:"child_id"`
	ChildSize int    `json:"child_size"`
}

type elementWire struct {
	Key       []byte `json:"key"`
	Timestamp uint64 `json:"timestamp"`
	Op        uint8  `json:"op"`
	Value     []byte `json:"value"`
}

// ToBytes serializes the node using kc and vc to encode keys and values.
func (n *Node[K, V]) ToBytes(kc codec.Codec[K], vc codec.Codec[V]) ([]byte, error) {
	pivotsWire := make([]pivotWire, 0, n.pivots.Len())
	var encErr error
	n.pivots.Range(func(k K, info ChildInfo) bool {
		kb, err := kc.Encode(k)
		if err != nil {
			encErr = fmt.Errorf("failed to encode pivot key: %w", err)
			return false
		}
		pivotsWire = append(pivotsWire, pivotWire{
			Key:       kb,
			ChildID:   uint64(info.ChildID),
			ChildSize: info.ChildSize,
		})
		return true
	})
	if encErr != nil {
		return nil, SerializationError{NodeID: n.id, Cause: encErr}
	}

	elementsWire := make([]elementWire, 0, n.elements.Len())
	n.elements.Range(func(mk message.MessageKey[K], msg message.Message[V]) bool {
		kb, err := kc.Encode(mk.Key)
		if err != nil {
			encErr = fmt.Errorf("failed to encode element key: %w", err)
			return false
		}
		var vb []byte
		if msg.Op != message.Delete {
			vb, err = vc.Encode(msg.Value)
			if err != nil {
				encErr = fmt.Errorf("failed to encode element value: %w", err)
				return false
			}
		}
		elementsWire = append(elementsWire, elementWire{
			Key:       kb,
			Timestamp: mk.Timestamp,
			Op:        uint8(msg.Op),
			Value:     vb,
		})
		return true
	})
	if encErr != nil {
		return nil, SerializationError{NodeID: n.id, Cause: encErr}
	}

	pivotsJSON, err := gojson.Marshal(pivotsWire)
	if err != nil {
		return nil, SerializationError{NodeID: n.id, Cause: err}
	}
	elementsJSON, err := gojson.Marshal(elementsWire)
	if err != nil {
		return nil, SerializationError{NodeID: n.id, Cause: err}
	}

	buf := make([]byte, 1+4+len(pivotsJSON)+4+len(elementsJSON)+4+8+8+1)
	off := 0
	off += util.U8(buf[off:], nodeFormatVersion)
	off += util.U32(buf[off:], uint32(len(pivotsJSON)))
	off += copy(buf[off:], pivotsJSON)
	off += util.U32(buf[off:], uint32(len(elementsJSON)))
	off += copy(buf[off:], elementsJSON)
	off += util.Float32(buf[off:], n.epsilon)
	off += util.U64(buf[off:], uint64(n.level))
	off += util.U64(buf[off:], uint64(n.id))
	util.U8(buf[off:], boolToByte(n.adoptionFlag))
	return buf, nil
}

// FromBytes populates n from data written by ToBytes. n.id must already be
// set by the caller (the paging layer knows which id it asked for); the
// encoded node_id is still read back and used to validate it matches.
// windowSize sizes the freshly constructed WST a loaded node starts with,
// since op-history is not part of the wire format (§6 lists only pivots,
// elements, epsilon, level, node_id, adoption_flag).
func (n *Node[K, V]) FromBytes(data []byte, kc codec.Codec[K], vc codec.Codec[V], windowSize int) error {
	if len(data) < 1+4 {
		return SerializationError{NodeID: n.id, Cause: fmt.Errorf("buffer too short: %d bytes", len(data))}
	}
	off := 0
	var version uint8
	off += util.ReadU8(data[off:], &version)
	if version != nodeFormatVersion {
		return SerializationError{NodeID: n.id, Cause: fmt.Errorf("unsupported node format version %d", version)}
	}

	var pivotsLen uint32
	off += util.ReadU32(data[off:], &pivotsLen)
	pivotsJSON := data[off : off+int(pivotsLen)]
	off += int(pivotsLen)

	var elementsLen uint32
	off += util.ReadU32(data[off:], &elementsLen)
	elementsJSON := data[off : off+int(elementsLen)]
	off += int(elementsLen)

	var epsilon float32
	off += util.ReadFloat32(data[off:], &epsilon)
	var level, id uint64
	off += util.ReadU64(data[off:], &level)
	off += util.ReadU64(data[off:], &id)
	if NodeID(id) != n.id {
		return SerializationError{NodeID: n.id, Cause: fmt.Errorf("encoded node id %d does not match", id)}
	}
	var flagByte uint8
	util.ReadU8(data[off:], &flagByte)

	var pivotsWire []pivotWire
	if err := gojson.Unmarshal(pivotsJSON, &pivotsWire); err != nil {
		return SerializationError{NodeID: n.id, Cause: fmt.Errorf("failed to unmarshal pivots: %w", err)}
	}
	var elementsWire []elementWire
	if err := gojson.Unmarshal(elementsJSON, &elementsWire); err != nil {
		return SerializationError{NodeID: n.id, Cause: fmt.Errorf("failed to unmarshal elements: %w", err)}
	}

	n.level = int(level)
	n.id = NodeID(id)
	n.epsilon = epsilon
	n.adoptionFlag = flagByte != 0
	n.wst = wst.NewTracker(windowSize)

	n.pivots = newPivotMap[K]()
	for _, pw := range pivotsWire {
		k, err := kc.Decode(pw.Key)
		if err != nil {
			return SerializationError{NodeID: n.id, Cause: fmt.Errorf("failed to decode pivot key: %w", err)}
		}
		n.pivots.Set(k, ChildInfo{ChildID: NodeID(pw.ChildID), ChildSize: pw.ChildSize})
	}

	n.elements = newElementMap[K, V]()
	for _, ew := range elementsWire {
		k, err := kc.Decode(ew.Key)
		if err != nil {
			return SerializationError{NodeID: n.id, Cause: fmt.Errorf("failed to decode element key: %w", err)}
		}
		msg := message.Message[V]{Op: message.Opcode(ew.Op)}
		if msg.Op != message.Delete {
			v, err := vc.Decode(ew.Value)
			if err != nil {
				return SerializationError{NodeID: n.id, Cause: fmt.Errorf("failed to decode element value: %w", err)}
			}
			msg.Value = v
		}
		n.elements.Set(message.NewMessageKey(k, ew.Timestamp), msg)
	}
	return nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
