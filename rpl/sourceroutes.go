// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package rpl

import (
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	. "github.com/atiselsts/6tisch-simulator-sub000/types"
)

// SourceRoutes is the DAO graph kept by the root in non-storing mode. Edges point from parent to
// child, so a shortest path from the root is the downward source route.
type SourceRoutes struct {
	root    MoteId
	g       *simple.DirectedGraph
	parents map[MoteId]MoteId
}

func NewSourceRoutes(root MoteId) *SourceRoutes {
	return &SourceRoutes{
		root:    root,
		g:       simple.NewDirectedGraph(),
		parents: make(map[MoteId]MoteId),
	}
}

// AddDao records that child has selected parent, replacing any previous parent of child.
func (sr *SourceRoutes) AddDao(child MoteId, parent MoteId) {
	if child == parent || child == sr.root {
		return
	}
	if old, ok := sr.parents[child]; ok {
		if old == parent {
			return
		}
		sr.g.RemoveEdge(int64(old), int64(child))
	}
	sr.parents[child] = parent
	sr.g.SetEdge(sr.g.NewEdge(simple.Node(parent), simple.Node(child)))
}

// Remove forgets the parent of child.
func (sr *SourceRoutes) Remove(child MoteId) {
	old, ok := sr.parents[child]
	if !ok {
		return
	}
	sr.g.RemoveEdge(int64(old), int64(child))
	delete(sr.parents, child)
}

// Parent returns the parent last reported by child.
func (sr *SourceRoutes) Parent(child MoteId) (MoteId, bool) {
	p, ok := sr.parents[child]
	return p, ok
}

// Len returns the number of motes with a known parent.
func (sr *SourceRoutes) Len() int {
	return len(sr.parents)
}

// ComputeSourceRoute returns the hops from the first hop below the root down to dest, or nil when
// the DAO graph holds no complete path.
func (sr *SourceRoutes) ComputeSourceRoute(dest MoteId) []MoteId {
	if dest == sr.root {
		return nil
	}
	root := sr.g.Node(int64(sr.root))
	if root == nil || sr.g.Node(int64(dest)) == nil {
		return nil
	}
	shortest := path.DijkstraFrom(root, sr.g)
	nodes, _ := shortest.To(int64(dest))
	if len(nodes) < 2 {
		return nil
	}
	route := make([]MoteId, 0, len(nodes)-1)
	for _, n := range nodes[1:] {
		route = append(route, MoteId(n.ID()))
	}
	return route
}
