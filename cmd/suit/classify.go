package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayusman/suit/internal/classifier"
	"github.com/ayusman/suit/internal/vision"
)

// ClassifyCmd classifies photos without playing.
type ClassifyCmd struct {
	Images []string `arg:"" type:"existingfile" help:"Photos to classify"`
	JSON   bool     `help:"Print one JSON object per photo"`
}

type classifyLine struct {
	Path string `json:"path"`
	classifier.Result
}

func (c *ClassifyCmd) Run(g *Globals) error {
	a, _, err := g.newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(g.Stdout)
	for _, path := range c.Images {
		r, err := classifyFile(a.Classifier(), path)
		if err != nil {
			return err
		}

		if c.JSON {
			if err := enc.Encode(classifyLine{Path: path, Result: r}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(g.Stdout, "%s: %s %s (%s) %.2f [%s]\n",
			path, r.Label.Emoji(), r.Label, r.Label.Local(), r.Confidence, r.Source)
	}
	return nil
}

func classifyFile(c classifier.Classify, path string) (classifier.Result, error) {
	img, err := readImage(path)
	if err != nil {
		return classifier.Result{}, err
	}
	defer img.Close()
	return c.Predict(img), nil
}

func readImage(path string) (vision.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vision.Image{}, err
	}
	img, err := vision.Decode(data)
	if err != nil {
		return vision.Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
