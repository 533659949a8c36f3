package parser

import (
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/geo"
	"github.com/OCAP2/portalview/internal/util"
	"github.com/OCAP2/portalview/pkg/core"
)

// NodeSpec holds the keys shared by every spatial kind.
type NodeSpec struct {
	Position math32.Vector3 // local translation relative to the parent
	Cull     core.CullMode
}

// ObjectSpec is a leaf spatial with a local bound.
type ObjectSpec struct {
	NodeSpec
	Bound math32.Box3
}

// PortalSpec is a portal quad in local space and the zone it opens into.
type PortalSpec struct {
	NodeSpec
	Quad [4]math32.Vector3
	Zone core.ID
	Open bool
}

func (p *Parser) parseNode(d core.Description) (NodeSpec, error) {
	var spec NodeSpec

	pos, err := optionalVector(d, KeyPosition, math32.Vector3{})
	if err != nil {
		return spec, err
	}
	spec.Position = pos

	spec.Cull = core.CullDynamic
	if v, ok := d.Get(KeyCull); ok {
		spec.Cull = core.CullMode(util.CleanValue(v))
		if !spec.Cull.Valid() {
			return spec, fmt.Errorf("cull: unknown mode %q", v)
		}
	}
	return spec, nil
}

// ParseGroup parses a plain transform node.
func (p *Parser) ParseGroup(d core.Description) (NodeSpec, error) {
	spec, err := p.parseNode(d)
	if err != nil {
		return spec, fmt.Errorf("error parsing group: %w", err)
	}
	return spec, nil
}

// ParseObject parses a leaf spatial. Its bound is in local space.
func (p *Parser) ParseObject(d core.Description) (ObjectSpec, error) {
	var spec ObjectSpec
	node, err := p.parseNode(d)
	if err != nil {
		return spec, fmt.Errorf("error parsing object: %w", err)
	}
	spec.NodeSpec = node

	spec.Bound, err = bound(d)
	if err != nil {
		return spec, fmt.Errorf("error parsing object bound: %w", err)
	}
	return spec, nil
}

// ParsePortal parses a portal. Portals are open unless "open" says otherwise.
func (p *Parser) ParsePortal(d core.Description) (PortalSpec, error) {
	var spec PortalSpec
	node, err := p.parseNode(d)
	if err != nil {
		return spec, fmt.Errorf("error parsing portal: %w", err)
	}
	spec.NodeSpec = node

	quad, err := required(d, KeyQuad)
	if err != nil {
		return spec, fmt.Errorf("error parsing portal: %w", err)
	}
	spec.Quad, err = geo.ParseQuad(quad)
	if err != nil {
		return spec, fmt.Errorf("error parsing portal quad: %w", err)
	}

	zone, err := required(d, KeyZone)
	if err != nil {
		return spec, fmt.Errorf("error parsing portal: %w", err)
	}
	spec.Zone = core.ID(zone)

	spec.Open, err = optionalBool(d, KeyOpen, true)
	if err != nil {
		return spec, fmt.Errorf("error parsing portal: %w", err)
	}
	return spec, nil
}

// ParseZone parses a zone skeleton. The description is kept on the skeleton so
// the node keys (position, cull) can be read when the zone node is built.
func (p *Parser) ParseZone(id core.ID, d core.Description) (core.ZoneSkeleton, error) {
	skel := core.ZoneSkeleton{ID: id, Description: d.Clone()}

	if _, err := p.parseNode(d); err != nil {
		return skel, fmt.Errorf("error parsing zone %s: %w", id, err)
	}

	b, err := bound(d)
	if err != nil {
		return skel, fmt.Errorf("error parsing zone %s bound: %w", id, err)
	}
	skel.Bound = b

	if v, ok := d.Get(KeyParentPortal); ok {
		skel.ParentPortal = core.ID(util.CleanValue(v))
	}
	skel.Outside, err = optionalBool(d, KeyOutside, false)
	if err != nil {
		return skel, fmt.Errorf("error parsing zone %s: %w", id, err)
	}
	if skel.Outside && skel.ParentPortal != "" {
		return skel, fmt.Errorf("error parsing zone %s: out-region cannot have a parent portal", id)
	}

	p.logger.Debug("Parsed zone skeleton", "zoneId", id, "outside", skel.Outside)
	return skel, nil
}

func describeNode(n NodeSpec) core.Description {
	d := core.Description{KeyPosition: geo.FormatVector3(n.Position)}
	if n.Cull != "" && n.Cull != core.CullDynamic {
		d[KeyCull] = string(n.Cull)
	}
	return d
}

// DescribeGroup is the inverse of ParseGroup.
func DescribeGroup(n NodeSpec) core.Description { return describeNode(n) }

// DescribeObject is the inverse of ParseObject.
func DescribeObject(o ObjectSpec) core.Description {
	d := describeNode(o.NodeSpec)
	d[KeyMin] = geo.FormatVector3(o.Bound.Min)
	d[KeyMax] = geo.FormatVector3(o.Bound.Max)
	return d
}

// DescribePortal is the inverse of ParsePortal.
func DescribePortal(pt PortalSpec) core.Description {
	d := describeNode(pt.NodeSpec)
	d[KeyQuad] = geo.QuadWKT(pt.Quad)
	d[KeyZone] = string(pt.Zone)
	d[KeyOpen] = fmt.Sprint(pt.Open)
	return d
}

// DescribeZone is the inverse of ParseZone. Keys already on the skeleton's
// description are kept.
func DescribeZone(skel core.ZoneSkeleton) core.Description {
	d := skel.Description.Clone()
	if d == nil {
		d = core.Description{}
	}
	d[KeyMin] = geo.FormatVector3(skel.Bound.Min)
	d[KeyMax] = geo.FormatVector3(skel.Bound.Max)
	if skel.ParentPortal != "" {
		d[KeyParentPortal] = string(skel.ParentPortal)
	}
	if skel.Outside {
		d[KeyOutside] = "true"
	}
	return d
}
