package diskoplan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// canonicalEncoder renders a Document as deterministic JSON: maps in Go
// don't preserve key order, so rather than marshal map[string]any the
// encoder walks each variant's fixed field list and writes keys in a
// constant order, with disk/array/VG names already sorted by Build.
type canonicalEncoder struct {
	buf bytes.Buffer
}

// Encode renders doc as canonical JSON: disk.<name>, mdadm.<name>,
// lvm_vg.<name>.lvs.<name>, with arrays in plan order and maps in sorted
// key order.
func Encode(doc *Document) ([]byte, error) {
	e := &canonicalEncoder{}
	e.writeByte('{')

	e.writeKey("disk")
	e.writeByte('{')
	for i, d := range doc.Disks {
		if i > 0 {
			e.writeByte(',')
		}
		e.writeKey(d.Name)
		if err := e.encodeDisk(d); err != nil {
			return nil, err
		}
	}
	e.writeByte('}')
	e.writeByte(',')

	e.writeKey("mdadm")
	e.writeByte('{')
	for i, m := range doc.MdadmArrays {
		if i > 0 {
			e.writeByte(',')
		}
		e.writeKey(m.Name)
		if err := e.encodeMdadmContent(m.Content); err != nil {
			return nil, err
		}
	}
	e.writeByte('}')
	e.writeByte(',')

	e.writeKey("lvm_vg")
	e.writeByte('{')
	for i, vg := range doc.VolumeGroups {
		if i > 0 {
			e.writeByte(',')
		}
		e.writeKey(vg.Name)
		if err := e.encodeVG(vg); err != nil {
			return nil, err
		}
	}
	e.writeByte('}')

	e.writeByte('}')
	return e.buf.Bytes(), nil
}

func (e *canonicalEncoder) encodeDisk(d Disk) error {
	e.writeByte('{')
	e.writeKey("type")
	e.writeString("disk")
	e.writeByte(',')
	e.writeKey("device")
	e.writeString(d.Device)
	e.writeByte(',')
	e.writeKey("content")
	if err := e.encodeGpt(d.Content); err != nil {
		return err
	}
	e.writeByte('}')
	return nil
}

func (e *canonicalEncoder) encodeGpt(g GptContent) error {
	e.writeByte('{')
	e.writeKey("type")
	e.writeString(TypeGpt)
	e.writeByte(',')
	e.writeKey("partitions")
	e.writeByte('[')
	for i, p := range g.Partitions {
		if i > 0 {
			e.writeByte(',')
		}
		e.writeByte('{')
		e.writeKey("number")
		e.writeRaw(fmt.Sprintf("%d", p.Number))
		e.writeByte(',')
		e.writeKey("label")
		e.writeString(p.Label)
		e.writeByte(',')
		e.writeKey("part_type")
		e.writeString(p.Type)
		e.writeByte(',')
		if p.SizeMiB > 0 {
			e.writeKey("size_mib")
			e.writeRaw(fmt.Sprintf("%d", p.SizeMiB))
			e.writeByte(',')
		}
		e.writeKey("content")
		if err := e.encodeContent(p.Content); err != nil {
			return err
		}
		e.writeByte('}')
	}
	e.writeByte(']')
	e.writeByte('}')
	return nil
}

func (e *canonicalEncoder) encodeMdadmContent(m MdadmContent) error {
	e.writeByte('{')
	e.writeKey("type")
	e.writeString(TypeMdadm)
	e.writeByte(',')
	e.writeKey("level")
	e.writeRaw(fmt.Sprintf("%d", m.Level))
	e.writeByte(',')
	e.writeKey("devices")
	e.writeByte('[')
	for i, dev := range m.Devices {
		if i > 0 {
			e.writeByte(',')
		}
		e.writeString(dev)
	}
	e.writeByte(']')
	e.writeByte(',')
	e.writeKey("content")
	if err := e.encodeContent(m.Content); err != nil {
		return err
	}
	e.writeByte('}')
	return nil
}

func (e *canonicalEncoder) encodeVG(vg VolumeGroup) error {
	e.writeByte('{')
	e.writeKey("type")
	e.writeString(TypeLvmVg)
	e.writeByte(',')
	e.writeKey("lvs")
	e.writeByte('{')
	for i, lv := range vg.LVs {
		if i > 0 {
			e.writeByte(',')
		}
		e.writeKey(lv.Name)
		e.writeByte('{')
		if lv.SizeMiB > 0 {
			e.writeKey("size_mib")
			e.writeRaw(fmt.Sprintf("%d", lv.SizeMiB))
			e.writeByte(',')
		}
		e.writeKey("content")
		if err := e.encodeContent(lv.Content); err != nil {
			return err
		}
		e.writeByte('}')
	}
	e.writeByte('}')
	e.writeByte('}')
	return nil
}

func (e *canonicalEncoder) encodeContent(c Content) error {
	if c.Type == "" {
		e.writeRaw("null")
		return nil
	}

	switch c.Type {
	case TypeFilesystem:
		e.writeByte('{')
		e.writeKey("type")
		e.writeString(TypeFilesystem)
		e.writeByte(',')
		e.writeKey("format")
		e.writeString(c.File.Format)
		if c.File.Label != "" {
			e.writeByte(',')
			e.writeKey("label")
			e.writeString(c.File.Label)
		}
		if c.File.MountPoint != "" {
			e.writeByte(',')
			e.writeKey("mountpoint")
			e.writeString(c.File.MountPoint)
		}
		if len(c.File.MountOptions) > 0 {
			e.writeByte(',')
			e.writeKey("mount_options")
			e.writeByte('[')
			for i, o := range c.File.MountOptions {
				if i > 0 {
					e.writeByte(',')
				}
				e.writeString(o)
			}
			e.writeByte(']')
		}
		e.writeByte('}')
	case TypeSwap:
		e.writeByte('{')
		e.writeKey("type")
		e.writeString(TypeSwap)
		if c.Swap.Label != "" {
			e.writeByte(',')
			e.writeKey("label")
			e.writeString(c.Swap.Label)
		}
		e.writeByte('}')
	case TypeLvmPv:
		e.writeByte('{')
		e.writeKey("type")
		e.writeString(TypeLvmPv)
		if c.LvmPv.VG != "" {
			e.writeByte(',')
			e.writeKey("vg")
			e.writeString(c.LvmPv.VG)
		}
		e.writeByte('}')
	case TypeMdadm:
		return e.encodeMdadmContent(*c.Mdadm)
	default:
		return fmt.Errorf("diskoplan: unknown content type %q", c.Type)
	}
	return nil
}

func (e *canonicalEncoder) writeByte(b byte) { e.buf.WriteByte(b) }

func (e *canonicalEncoder) writeRaw(s string) { e.buf.WriteString(s) }

func (e *canonicalEncoder) writeString(s string) {
	b, _ := json.Marshal(s)
	e.buf.Write(b)
}

func (e *canonicalEncoder) writeKey(k string) {
	e.writeString(k)
	e.writeByte(':')
}
