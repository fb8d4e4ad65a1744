// Package hclstage reads and writes stages in an HCL text format:
//
//	stage {
//	  up_axis = "Z"
//	}
//
//	prim "Xform" "World" {
//	  attributes = {
//	    "xformOp:transform" = [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]
//	  }
//	  sample "xformOp:transform" {
//	    time  = 24
//	    value = [1, 0, 0, 5, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]
//	  }
//	  prim "Mesh" "Ground" { ... }
//	}
//
//	master "Xform" "__Master_1" { ... }
//
//	prim "Xform" "Tree" {
//	  instance = "/__Master_1"
//	}
//
// Attribute values are typed by the stage schema table.
package hclstage

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block of a stage file.
type fileRoot struct {
	Stage   *stageBlock  `hcl:"stage,block"`
	Prims   []*primBlock `hcl:"prim,block"`
	Masters []*primBlock `hcl:"master,block"`
}

type stageBlock struct {
	UpAxis        string `hcl:"up_axis,optional"`
	Interpolation string `hcl:"interpolation,optional"`
}

type primBlock struct {
	Type       string         `hcl:"type,label"`
	Name       string         `hcl:"name,label"`
	Instance   string         `hcl:"instance,optional"`
	Attributes hcl.Expression `hcl:"attributes,optional"`
	Samples    []*sampleBlock `hcl:"sample,block"`
	Children   []*primBlock   `hcl:"prim,block"`
}

type sampleBlock struct {
	Attr  string         `hcl:"attr,label"`
	Time  float64        `hcl:"time"`
	Value hcl.Expression `hcl:"value"`
}
