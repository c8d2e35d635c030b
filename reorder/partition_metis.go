//go:build metis

package reorder

import (
	"fmt"

	metis "github.com/notargets/go-metis"
)

func partitionGraph(g *Graph, cfg *PartitionConfig) (part []int32, objval int32, err error) {
	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, 0, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if cfg.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{cfg.ImbalanceFactor}
	part, objval, err = metis.PartGraphKwayWeighted(
		g.Xadj, g.Adjncy, nil, nil,
		cfg.NumPartitions, nil, ubvec, opts,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	return part, objval, nil
}
