/*
Package ranforest grows randomized space-partitioning forests over
fixed-dimension float32 points and uses them to cluster the points.

Each tree recursively splits its points with a randomly elected rule until a
node is too small, too deep or too uniform to split. A point's leaf in every
tree names a small group of likely neighbours. Landing all points in all
trees yields a bipartite graph from points to tree nodes, which a
constrained k-means ("quasi k-means") refines into weighted cluster
memberships.

# Quick Start

	package main

	import (
	    "log"
	    "os"

	    "github.com/wizenheimer/ranforest"
	)

	func main() {
	    points := loadPoints() // [][]float32, all of length 8

	    cfg := ranforest.DefaultGrowConfig()
	    cfg.Seed = 42
	    cfg.Logger = ranforest.NewLogger("info", os.Stderr)

	    forest := ranforest.NewForest()
	    if err := forest.Grow(10, points, 8, cfg); err != nil {
	        log.Fatal(err)
	    }

	    // Every point lands in one leaf per tree.
	    prior, err := forest.BatchQuery(points, ranforest.NoLevelLimit)
	    if err != nil {
	        log.Fatal(err)
	    }

	    qkm, err := ranforest.NewQuasiKMeans(8, ranforest.DefaultClusterOptions())
	    if err != nil {
	        log.Fatal(err)
	    }
	    membership, err := qkm.Fit(points, prior)
	    if err != nil {
	        log.Fatal(err)
	    }
	    for _, e := range membership.From(0) {
	        log.Printf("point 0 in cluster %d with weight %.3f", e.Peer, e.Weight)
	    }
	}

# Kernels

A Kernel elects the Splitter of a node:

  - AxisKernel: one coordinate, random threshold in the inner 95% of its
    range. Produces *AxisSplitter.
  - VantagePointKernel: L1 distance to one of the node's points, threshold
    at the median distance. Produces *DistanceSplitter.
  - ProjectionKernel: random unit direction over a few coordinates,
    threshold at the median projection. Produces *SubspaceSplitter.

A kernel that declines to split returns an ElectionStatus other than
Success and the node becomes a leaf. Kernels that sample coordinates keep a
SamplingPool per node; a coordinate that stops varying is removed from the
pool of the node and all of its descendants.

# Node Table

All trees of a forest share one append-only table addressed by NodeID.
Trees grow concurrently, one goroutine per tree, each with its own random
stream derived from GrowConfig.Seed. Only appends to the table are
serialized.

# Persistence

Forest.Write stores one file per tree (tree.0, tree.1, ...) and Forest.Read
finds them by probing consecutive indices. QuasiKMeans.WriteCenters stores
cluster centers in float32 or float16, and Bipartite.WriteTo stores a
membership graph.

# Configuration

Config wraps viper. LoadConfig reads a YAML, TOML or JSON file and
GrowConfig, ClusterOptions and NewQuasiKMeans turn it into ready-to-use
values.
*/
package ranforest
