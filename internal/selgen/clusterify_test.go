package selgen_test

import (
	"reflect"
	"testing"

	"keel/internal/ir"
	"keel/internal/selgen"
)

func TestClusterify(t *testing.T) {
	tests := []struct {
		name  string
		cases []ir.SwitchCase
		want  []selgen.CaseCluster
	}{
		{
			name: "singletons stay apart",
			cases: []ir.SwitchCase{
				{Value: 10, Target: 2, Weight: 1},
				{Value: 1, Target: 1, Weight: 1},
			},
			want: []selgen.CaseCluster{
				{Low: 1, High: 1, Target: 1, Weight: 1},
				{Low: 10, High: 10, Target: 2, Weight: 1},
			},
		},
		{
			name: "adjacent same target merge",
			cases: []ir.SwitchCase{
				{Value: 3, Target: 1, Weight: 2},
				{Value: 1, Target: 1, Weight: 1},
				{Value: 2, Target: 1, Weight: 4},
			},
			want: []selgen.CaseCluster{
				{Low: 1, High: 3, Target: 1, Weight: 7},
			},
		},
		{
			name: "adjacent different targets stay apart",
			cases: []ir.SwitchCase{
				{Value: 1, Target: 1, Weight: 1},
				{Value: 2, Target: 2, Weight: 1},
			},
			want: []selgen.CaseCluster{
				{Low: 1, High: 1, Target: 1, Weight: 1},
				{Low: 2, High: 2, Target: 2, Weight: 1},
			},
		},
		{
			name: "gap prevents merging",
			cases: []ir.SwitchCase{
				{Value: 1, Target: 1, Weight: 1},
				{Value: 3, Target: 1, Weight: 1},
			},
			want: []selgen.CaseCluster{
				{Low: 1, High: 1, Target: 1, Weight: 1},
				{Low: 3, High: 3, Target: 1, Weight: 1},
			},
		},
		{
			name: "negative values sort before positive",
			cases: []ir.SwitchCase{
				{Value: 5, Target: 1, Weight: 1},
				{Value: -3, Target: 2, Weight: 1},
				{Value: -2, Target: 2, Weight: 1},
			},
			want: []selgen.CaseCluster{
				{Low: -3, High: -2, Target: 2, Weight: 2},
				{Low: 5, High: 5, Target: 1, Weight: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selgen.Clusterify(tt.cases)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Clusterify() = %+v, want %+v", got, tt.want)
			}
			// Re-clustering the output must change nothing.
			again := selgen.ClusterifyClusters(got)
			if !reflect.DeepEqual(again, got) {
				t.Fatalf("clusterify not idempotent: %+v -> %+v", got, again)
			}
		})
	}
}

func TestClusterifyWeightConservation(t *testing.T) {
	cases := []ir.SwitchCase{
		{Value: 1, Target: 1, Weight: 10},
		{Value: 2, Target: 1, Weight: 20},
		{Value: 3, Target: 1, Weight: 30},
		{Value: 7, Target: 2, Weight: 5},
		{Value: 8, Target: 3, Weight: 6},
	}
	var in uint32
	for _, c := range cases {
		in += c.Weight
	}
	var out uint32
	for _, c := range selgen.Clusterify(cases) {
		out += c.Weight
	}
	if in != out {
		t.Fatalf("weight sum changed: %d -> %d", in, out)
	}
}
