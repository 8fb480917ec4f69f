package rvsdg

import "github.com/SovereignSatellite/Spider/internal/cfg"

// varKind distinguishes the three flavors of value a region threads
// through its boundary: a register, a resource dependency, or the trap
// link. Gamma and Theta both broadcast the same three flavors in and
// collect them back out, so one slice of these drives both.
type varKind int

const (
	varLocal varKind = iota
	varDep
	varTrap
)

type varSlot struct {
	kind varKind
	reg  cfg.Register
	dep  depKey
}

// liveVars returns the slots the converter's current state occupies,
// restricted to the registers live at live (when non-nil); dependencies
// and the trap link are always carried, since every dependency is live
// for the whole function (spec's conservative reference tracking, see
// internal/liveness) and the trap link must never be dropped.
func (c *converter) liveVars(live []cfg.Register) []varSlot {
	var slots []varSlot

	if live != nil {
		for _, r := range live {
			if _, ok := c.locals[r]; ok {
				slots = append(slots, varSlot{kind: varLocal, reg: r})
			}
		}
	} else {
		for r := range c.locals {
			slots = append(slots, varSlot{kind: varLocal, reg: r})
		}
	}

	for _, k := range c.depOrder {
		slots = append(slots, varSlot{kind: varDep, dep: k})
	}
	slots = append(slots, varSlot{kind: varTrap})

	return slots
}

func (c *converter) read(s varSlot) Link {
	switch s.kind {
	case varLocal:
		return c.link(s.reg)
	case varDep:
		return c.deps[s.dep]
	default:
		return c.trap
	}
}

func (c *converter) write(s varSlot, l Link) {
	switch s.kind {
	case varLocal:
		c.locals[s.reg] = l
	case varDep:
		c.deps[s.dep] = l
	default:
		c.trap = l
	}
}

// buildGamma structures a diamond branch (spec §4.4 "Gamma construction"):
// entry's condition selects one of len(succs) arms, each converted up to
// join, with a GammaIn/arm-RegionIn/arm-RegionOut/GammaOut boundary
// carrying every live register, every resource dependency, and the trap
// link across the branch.
func (c *converter) buildGamma(entry cfg.BlockID, succs []cfg.BlockID, join cfg.BlockID) {
	cond := c.convertBlock(entry)
	condLink := c.link(cond)

	slots := c.liveVars(c.live.Get(join))

	ginInputs := make([]Link, 0, len(slots)+1)
	ginInputs = append(ginInputs, condLink)
	for _, s := range slots {
		ginInputs = append(ginInputs, c.read(s))
	}
	gammaIn := c.graph.Add(Node{Kind: KindGammaIn, Inputs: ginInputs, Outputs: len(slots)})

	regions := make([]Region, 0, len(succs))
	armOuts := make([][]Link, 0, len(succs))

	savedLocals, savedDeps, savedTrap := c.locals, c.deps, c.trap

	for _, arm := range succs {
		ginLinks := make([]Link, len(slots))
		for i := range slots {
			ginLinks[i] = Link{Node: gammaIn, Port: uint16(i)}
		}
		regionIn := c.graph.Add(Node{Kind: KindRegionIn, Inputs: ginLinks, Outputs: len(slots)})

		armLocals := map[cfg.Register]Link{}
		armDeps := map[depKey]Link{}
		var armTrap Link
		for i, s := range slots {
			switch s.kind {
			case varLocal:
				armLocals[s.reg] = Link{Node: regionIn, Port: uint16(i)}
			case varDep:
				armDeps[s.dep] = Link{Node: regionIn, Port: uint16(i)}
			default:
				armTrap = Link{Node: regionIn, Port: uint16(i)}
			}
		}
		for reg, l := range savedLocals {
			if _, ok := armLocals[reg]; !ok {
				armLocals[reg] = l
			}
		}

		c.locals, c.deps, c.trap = armLocals, armDeps, armTrap
		c.runArm(arm, join)

		outs := make([]Link, len(slots))
		for i, s := range slots {
			outs[i] = c.read(s)
		}
		regionOut := c.graph.Add(Node{Kind: KindRegionOut, Inputs: outs, Outputs: 0})
		c.graph.At(regionIn).Partner = regionOut
		c.graph.At(regionOut).Partner = regionIn

		regions = append(regions, Region{Start: regionIn, End: regionOut + 1})
		armOuts = append(armOuts, outs)
	}

	gammaInNode := c.graph.At(gammaIn)
	gammaInNode.Regions = regions

	goutInputs := make([]Link, 0, len(slots)*len(succs))
	for _, outs := range armOuts {
		goutInputs = append(goutInputs, outs...)
	}
	gammaOut := c.graph.Add(Node{Kind: KindGammaOut, Inputs: goutInputs, Outputs: len(slots)})
	c.graph.At(gammaIn).Partner = gammaOut
	c.graph.At(gammaOut).Partner = gammaIn

	c.locals, c.deps, c.trap = savedLocals, savedDeps, savedTrap
	for i, s := range slots {
		c.write(s, Link{Node: gammaOut, Port: uint16(i)})
	}
}

// runArm converts straight-line code from entry up to (not including)
// join, for use inside a single Gamma arm. A br_table arm may itself
// contain a nested branch that also joins at the same block, which
// c.run's ordinary Gamma handling covers recursively; an empty arm (entry
// == join, from structurer.fillEmptyBranches leaving nothing to convert)
// is simply a no-op.
func (c *converter) runArm(entry, join cfg.BlockID) {
	if entry == join {
		return
	}
	c.run(entry, join)
}

// buildTheta structures a tail-controlled loop (spec §4.4 "Theta
// construction"): the body from entry through latch is converted once,
// with ThetaIn/body-RegionIn/body-RegionOut/ThetaOut threading every live
// register, dependency, and the trap link around the back edge, plus one
// extra predicate port selecting continue (true, back to entry) versus
// break (false, to the loop's exit successor).
func (c *converter) buildTheta(entry, latch cfg.BlockID) {
	slots := c.liveVars(nil)

	thetaInputs := make([]Link, len(slots))
	for i, s := range slots {
		thetaInputs[i] = c.read(s)
	}
	thetaIn := c.graph.Add(Node{Kind: KindThetaIn, Inputs: thetaInputs, Outputs: len(slots)})

	tinLinks := make([]Link, len(slots))
	for i := range slots {
		tinLinks[i] = Link{Node: thetaIn, Port: uint16(i)}
	}
	regionIn := c.graph.Add(Node{Kind: KindRegionIn, Inputs: tinLinks, Outputs: len(slots)})

	bodyLocals := map[cfg.Register]Link{}
	bodyDeps := map[depKey]Link{}
	var bodyTrap Link
	for i, s := range slots {
		switch s.kind {
		case varLocal:
			bodyLocals[s.reg] = Link{Node: regionIn, Port: uint16(i)}
		case varDep:
			bodyDeps[s.dep] = Link{Node: regionIn, Port: uint16(i)}
		default:
			bodyTrap = Link{Node: regionIn, Port: uint16(i)}
		}
	}

	savedLocals, savedDeps, savedTrap := c.locals, c.deps, c.trap
	c.locals, c.deps, c.trap = bodyLocals, bodyDeps, bodyTrap

	current := entry
	for current != latch {
		succs := c.fn.Blocks[current].Succs
		if nestedLatch, ok := c.loops[current]; ok && current != entry {
			c.buildTheta(current, nestedLatch)
			current = c.loopExit(current, nestedLatch)
			continue
		}
		if len(succs) <= 1 {
			c.convertBlock(current)
			if len(succs) == 0 {
				break
			}
			current = succs[0]
			continue
		}
		join := c.postdom[current]
		c.buildGamma(current, succs, join)
		current = join
	}
	predicate := c.convertBlock(latch)
	predicateLink := c.link(predicate)

	outs := make([]Link, len(slots))
	for i, s := range slots {
		outs[i] = c.read(s)
	}
	regionOut := c.graph.Add(Node{Kind: KindRegionOut, Inputs: append(append([]Link{}, outs...), predicateLink), Outputs: 0})
	c.graph.At(regionIn).Partner = regionOut
	c.graph.At(regionOut).Partner = regionIn

	c.graph.At(thetaIn).Regions = []Region{{Start: regionIn, End: regionOut + 1}}
	c.graph.At(thetaIn).Body = c.graph.At(thetaIn).Regions[0]

	thetaOut := c.graph.Add(Node{Kind: KindThetaOut, Inputs: outs, Outputs: len(slots)})
	c.graph.At(thetaIn).Partner = thetaOut
	c.graph.At(thetaOut).Partner = thetaIn

	c.locals, c.deps, c.trap = savedLocals, savedDeps, savedTrap
	for i, s := range slots {
		c.write(s, Link{Node: thetaOut, Port: uint16(i)})
	}
}
