package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// The in-memory scene representation shared by all tracers. Every slice is
// built once by the scene reader and treated as read-only while rendering.
type Scene struct {
	Camera *Camera

	Materials []Material
	Geoms     []Geom

	// Flat triangle storage for all mesh instances. Each mesh geom
	// references a contiguous range in this list.
	Triangles []Triangle

	// Flat BVH node storage for all meshes in depth-first order. Each
	// mesh geom references its root node by index.
	BvhNodes []BvhNode
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Geometry", "---", fmtSize(sc.Geoms, sc.Triangles, sc.BvhNodes)})
	table.Append([]string{"", "Instances", fmtSize(sc.Geoms)})
	table.Append([]string{"", "Triangles", fmtSize(sc.Triangles)})
	table.Append([]string{"", "BVH", fmtSize(sc.BvhNodes)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Materials", "---", fmtSize(sc.Materials)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.Geoms, sc.Triangles, sc.BvhNodes, sc.Materials), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
