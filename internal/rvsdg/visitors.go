package rvsdg

// Normalize runs the four RVSDG visitors in the order the emitter needs
// them (spec §4.5): topological sort, fallthrough removal, dead-port
// elimination, then identity insertion for the copies a register-based
// emitter must see materialized.
func Normalize(g *Graph) {
	Topological(g)
	Fallthrough(g)
	DeadPorts(g)
	InsertIdentities(g)
}

// requirements returns id's structural back-pointers: the nodes a visitor
// must place before id regardless of data-input order (spec §4.5
// "Topological normalizer" — "a RegionOut requires its RegionIn").
func requirements(g *Graph, id NodeID) []NodeID {
	n := g.At(id)
	switch n.Kind {
	case KindRegionOut, KindGammaOut, KindThetaOut, KindLambdaOut, KindOmegaOut:
		if n.Partner >= 0 {
			return []NodeID{n.Partner}
		}
	}
	return nil
}

// Topological performs a post-order DFS from g's result node (the
// boundary-out node of its root region), visiting each node's
// requirements before its data arguments, then swaps the arena into that
// post order (which places the result last) and remaps every embedded
// NodeID.
func Topological(g *Graph) {
	root := g.At(g.Root.Start)
	result := root.Partner
	if result < 0 || int(result) >= len(g.Nodes) {
		result = g.Root.End - 1
	}

	visited := make([]bool, len(g.Nodes))
	var order []NodeID

	var visit func(id NodeID)
	visit = func(id NodeID) {
		if id < 0 || int(id) >= len(g.Nodes) || visited[id] {
			return
		}
		visited[id] = true

		for _, r := range requirements(g, id) {
			visit(r)
		}
		for _, in := range g.At(id).Inputs {
			if !in.IsDangling() {
				visit(in.Node)
			}
		}
		for _, r := range g.At(id).Regions {
			visitRegionInner(g, r, visited, &order)
		}
		if body := g.At(id).Body; body.End > body.Start {
			visitRegionInner(g, body, visited, &order)
		}

		order = append(order, id)
	}
	visit(result)

	// Anything unreached (e.g. a dead branch of the graph never reached
	// from result) is appended in its original order, preserving validity
	// without pretending it's live — the dead-port eliminator is what
	// actually removes it.
	for id := NodeID(0); int(id) < len(g.Nodes); id++ {
		if !visited[id] {
			visited[id] = true
			order = append(order, id)
		}
	}

	remap := make([]NodeID, len(g.Nodes))
	newNodes := make([]Node, len(order))
	for newID, oldID := range order {
		remap[oldID] = NodeID(newID)
		newNodes[newID] = g.Nodes[oldID]
	}

	for i := range newNodes {
		remapNode(&newNodes[i], remap)
	}
	g.Nodes = newNodes
	g.Root = remapRegion(g.Root, remap)
}

// visitRegionInner walks every node whose index falls within region r,
// marking and appending each exactly once, in ascending index order — a
// region's own internal nodes have no other entry point once its
// boundary pair is already queued.
func visitRegionInner(g *Graph, r Region, visited []bool, order *[]NodeID) {
	for id := r.Start; id < r.End; id++ {
		if int(id) < len(visited) && !visited[id] {
			visited[id] = true
			*order = append(*order, id)
		}
	}
}

func remapNode(n *Node, remap []NodeID) {
	for i := range n.Inputs {
		if !n.Inputs[i].IsDangling() {
			n.Inputs[i].Node = remap[n.Inputs[i].Node]
		}
	}
	if n.Partner >= 0 && int(n.Partner) < len(remap) {
		n.Partner = remap[n.Partner]
	}
	for i := range n.Regions {
		n.Regions[i] = remapRegion(n.Regions[i], remap)
	}
	n.Body = remapRegion(n.Body, remap)
}

func remapRegion(r Region, remap []NodeID) Region {
	if int(r.Start) >= len(remap) || int(r.End) > len(remap) || r.End <= r.Start {
		return r
	}
	return Region{Start: remap[r.Start], End: remap[r.End-1] + 1}
}

// Fallthrough replaces a GammaOut/ThetaOut result with the region's own
// input argument wherever every arm (Gamma) or the single body (Theta)
// returns that argument unchanged (spec §4.5 "Fallthrough mover").
func Fallthrough(g *Graph) {
	replace := map[Link]Link{}

	for id := range g.Nodes {
		n := &g.Nodes[id]
		switch n.Kind {
		case KindGammaOut:
			gin := g.At(n.Partner)
			arity := gin.Outputs
			for port := 0; port < n.Outputs && port*len(gin.Regions) < len(n.Inputs); port++ {
				same := true
				for arm := range gin.Regions {
					idx := arm*arity + port
					if idx >= len(n.Inputs) {
						same = false
						break
					}
					in := n.Inputs[idx]
					if in.Node != gin.Regions[arm].Start || int(in.Port) != port {
						same = false
					}
				}
				if same {
					replace[Link{Node: NodeID(id), Port: uint16(port)}] = Link{Node: gin.Inputs[1+port].Node, Port: gin.Inputs[1+port].Port}
				}
			}
		case KindThetaOut:
			tin := g.At(n.Partner)
			for port := 0; port < n.Outputs && port < len(n.Inputs); port++ {
				in := n.Inputs[port]
				if in.Node == tin.Body.Start && int(in.Port) == port {
					replace[Link{Node: NodeID(id), Port: uint16(port)}] = tin.Inputs[port]
				}
			}
		}
	}

	applyReplacements(g, replace)
}

// applyReplacements rewrites every input link through a scratch map,
// following chains (a replaced link may itself have been replaced) until
// reaching a fixed point, per spec's "applied globally at the end".
func applyReplacements(g *Graph, replace map[Link]Link) {
	if len(replace) == 0 {
		return
	}
	resolve := func(l Link) Link {
		for {
			next, ok := replace[l]
			if !ok || next == l {
				return l
			}
			l = next
		}
	}
	for i := range g.Nodes {
		for j, in := range g.Nodes[i].Inputs {
			if !in.IsDangling() {
				g.Nodes[i].Inputs[j] = resolve(in)
			}
		}
	}
}

// DeadPorts runs a two-phase mark-sweep (spec §4.5 "Dead-port
// eliminator"): mark every port reachable from the result, including a
// gamma/theta/region pair's counterpart ports, then drop unmarked
// input/output ports and rewrite every link through the resulting
// renumbering.
func DeadPorts(g *Graph) {
	markedOut := make([]map[uint16]bool, len(g.Nodes))
	for i := range markedOut {
		markedOut[i] = map[uint16]bool{}
	}

	root := g.At(g.Root.Start)
	result := root.Partner
	if result < 0 || int(result) >= len(g.Nodes) {
		result = g.Root.End - 1
	}

	var queue []Link
	enqueueAllInputs := func(id NodeID) {
		for _, in := range g.At(id).Inputs {
			if !in.IsDangling() {
				queue = append(queue, in)
			}
		}
	}
	enqueueAllInputs(result)

	visitedNode := make([]bool, len(g.Nodes))
	visitedNode[result] = true

	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		markedOut[l.Node][l.Port] = true

		if visitedNode[l.Node] {
			continue
		}
		visitedNode[l.Node] = true

		n := g.At(l.Node)
		enqueueAllInputs(l.Node)
		if n.Partner >= 0 && !visitedNode[n.Partner] {
			visitedNode[n.Partner] = true
			enqueueAllInputs(n.Partner)
		}
	}

	portRemap := make([][]int, len(g.Nodes))
	for id := range g.Nodes {
		n := &g.Nodes[id]
		portRemap[id] = make([]int, n.Outputs)
		next := 0
		for p := 0; p < n.Outputs; p++ {
			if markedOut[id][uint16(p)] || !visitedNode[id] {
				portRemap[id][p] = next
				next++
			} else {
				portRemap[id][p] = -1
			}
		}
		if visitedNode[id] {
			n.Outputs = next
		}
	}

	for id := range g.Nodes {
		n := &g.Nodes[id]
		kept := n.Inputs[:0]
		for _, in := range n.Inputs {
			if in.IsDangling() || in.Port == StatePort {
				kept = append(kept, in)
				continue
			}
			newPort := portRemap[in.Node][in.Port]
			if newPort < 0 {
				kept = append(kept, Dangling)
				continue
			}
			kept = append(kept, Link{Node: in.Node, Port: uint16(newPort)})
		}
		n.Inputs = kept
	}
}

// InsertIdentities materializes an Identity node wherever a value must be
// physically copied for a register-based emitter to produce correct code
// (spec §4.5 "Region-identity inserter"): a RegionOut result sourced
// directly from its own RegionIn, every ThetaIn argument, and every
// ThetaOut result or condition sourced directly from its own ThetaIn.
func InsertIdentities(g *Graph) {
	for id := 0; id < len(g.Nodes); id++ {
		n := &g.Nodes[id]

		switch n.Kind {
		case KindRegionOut:
			regionIn := n.Partner
			for i, in := range n.Inputs {
				if in.Node == regionIn {
					n.Inputs[i] = insertIdentity(g, in)
				}
			}
		case KindThetaIn:
			for i, in := range n.Inputs {
				n.Inputs[i] = insertIdentity(g, in)
			}
		case KindThetaOut:
			thetaIn := n.Partner
			for i, in := range n.Inputs {
				if in.Node == thetaIn {
					n.Inputs[i] = insertIdentity(g, in)
				}
			}
		}
	}
}

func insertIdentity(g *Graph, in Link) Link {
	if in.IsDangling() {
		return in
	}
	id := g.Add(Node{Kind: KindIdentity, Inputs: []Link{in}, Outputs: 1})
	return Link{Node: id, Port: 0}
}
