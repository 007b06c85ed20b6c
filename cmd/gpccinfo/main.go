// Package main prints the coding structure implied by a gpcc
// configuration.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	gpcc "github.com/ajroetker/go-gpcc"
)

const flagConfig = "config"

func main() {
	app := &cli.App{
		Name:  "gpccinfo",
		Usage: "inspect point cloud codec configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "load configuration from `FILE`",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "plan",
				Usage:  "print the node size of every geometry tree level",
				Action: planAction,
			},
			{
				Name:   "qp",
				Usage:  "print the qp layers and step sizes of each attribute",
				Action: qpAction,
			},
			{
				Name:   "lasers",
				Usage:  "print the angular sensor tables",
				Action: lasersAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*gpcc.Config, error) {
	return gpcc.LoadConfig(c.String(flagConfig))
}

func planAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sizes := gpcc.MkQtBtNodeSizeList(&cfg.Geometry, cfg.GeometryHeader.RootNodeSizeLog2)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Level", "X", "Y", "Z", "Split"})
	for i, s := range sizes {
		split := ""
		if i > 0 {
			split = splitAxes(sizes[i-1], s)
		}
		t.AppendRow(table.Row{i, s[0], s[1], s[2], split})
	}
	t.AppendFooter(table.Row{"", "", "", "levels", len(sizes)})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func splitAxes(parent, child [3]int) string {
	axes := lo.Filter([]int{0, 1, 2}, func(k, _ int) bool {
		return max(parent[k], 0) != max(child[k], 0)
	})
	return string(lo.Map(axes, func(k, _ int) byte { return "xyz"[k] }))
}

func qpAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if len(cfg.Attributes) == 0 {
		return errors.New("configuration has no attributes")
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Attribute", "Transform", "Layer", "Luma QP", "Chroma QP", "Luma Step", "Chroma Step"})
	for i := range cfg.Attributes {
		a := &cfg.Attributes[i]
		set := gpcc.DeriveQpSet(&a.Params, &cfg.AttributeHeader)
		for layer, qp := range set.Layers {
			t.AppendRow(table.Row{
				i, a.Params.Encoding, layer, qp[0], qp[1],
				stepString(gpcc.NewQuantizer(qp[0])), stepString(gpcc.NewQuantizer(qp[1])),
			})
		}
	}
	if n := len(cfg.AttributeHeader.QpRegions); n > 0 {
		t.AppendFooter(table.Row{"", "", "", "", "", "regions", n})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func stepString(q gpcc.Quantizer) string {
	return fmt.Sprintf("%.3f", float64(q.StepSize())/256)
}

func lasersAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Geometry.AngularEnabled {
		return errors.New("angular coding is not enabled")
	}
	a := &cfg.Geometry.Angular
	phiZi := gpcc.NewAzimuthalPhiZi(a.NumPhiPerTurn)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Laser", "Theta", "Elevation (deg)", "Z", "Phi/Turn", "Delta Phi", "Inv Delta"})
	for i := range a.NumLasers() {
		elevation := math.Atan(float64(a.ThetaLaser[i])/(1<<18)) * 180 / math.Pi
		t.AppendRow(table.Row{
			i, a.ThetaLaser[i], fmt.Sprintf("%.3f", elevation), a.ZLaser[i],
			a.NumPhiPerTurn[i], phiZi.Delta(i), phiZi.InvDelta(i),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "samples", lo.Sum(a.NumPhiPerTurn), ""})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}
