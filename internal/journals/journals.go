// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journals carries the curated journal lists used to filter
// candidate discovery, plus a loader for user-supplied lists.
package journals

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Default is the default journal filter: high-impact biology and
// medicine venues.
var Default = []string{
	"Nature",
	"Science",
	"Cell",
	"The New England Journal of Medicine",
	"The Lancet",
	"JAMA",
	"Nature Medicine",
	"Nature Biotechnology",
	"Nature Genetics",
	"Nature Immunology",
	"Nature Cell Biology",
	"Nature Structural & Molecular Biology",
	"Nature Microbiology",
	"Nature Neuroscience",
	"Nature Methods",
	"Nature Reviews Immunology",
	"Nature Reviews Genetics",
	"Nature Reviews Molecular Cell Biology",
	"Nature Reviews Cancer",
	"Nature Reviews Drug Discovery",
	"Nature Communications",
	"Science Translational Medicine",
	"Science Immunology",
	"Science Advances",
	"Cell Stem Cell",
	"Cell Metabolism",
	"Cancer Cell",
	"Immunity",
	"Molecular Cell",
	"Developmental Cell",
	"Cell Reports",
	"Cancer Discovery",
	"Blood",
	"Journal of Clinical Investigation",
	"Journal of Experimental Medicine",
	"PNAS",
	"eLife",
	"EMBO Journal",
	"Genome Research",
	"Genome Biology",
	"Nucleic Acids Research",
	"PLoS Biology",
	"Cell Systems",
	"Trends in Immunology",
	"Annual Review of Immunology",
	"The Lancet Oncology",
	"JAMA Oncology",
	"Annals of Internal Medicine",
	"BMJ",
}

// Extended widens Default with additional specialty and clinical venues.
var Extended = append(append([]string{}, Default...),
	"Journal of Immunology",
	"Frontiers in Immunology",
	"Nature Reviews Microbiology",
	"Nature Protocols",
	"Cell Host & Microbe",
	"Trends in Cell Biology",
	"Trends in Genetics",
	"Molecular Systems Biology",
	"Nature Chemical Biology",
	"Science Signaling",
	"JCI Insight",
	"PLoS Genetics",
	"PLoS Pathogens",
	"mBio",
	"PLOS Medicine",
	"Clinical Cancer Research",
	"Journal of Clinical Oncology",
	"Leukemia",
	"Genes & Development",
	"Molecular and Cellular Biology",
	"Journal of Biological Chemistry",
	"Cell Death & Differentiation",
	"Autophagy",
	"Oncogene",
	"Nature Reviews Clinical Oncology",
	"Trends in Molecular Medicine",
	"Gastroenterology",
	"Hepatology",
	"Circulation",
	"Circulation Research",
	"Journal of the American College of Cardiology",
	"European Heart Journal",
	"Diabetes",
	"Diabetologia",
	"Kidney International",
	"Journal of Neuroscience",
	"Neuron",
	"Brain",
	"Acta Neuropathologica",
	"Arthritis & Rheumatology",
	"Annals of the Rheumatic Diseases",
	"Gut",
	"Journal of Allergy and Clinical Immunology",
	"American Journal of Respiratory and Critical Care Medicine",
	"Chest",
	"Journal of Infectious Diseases",
	"Clinical Infectious Diseases",
	"The Lancet Infectious Diseases",
	"Journal of Virology",
	"mSystems",
	"Microbiome",
	"Cell Chemical Biology",
)

// LoadFromFile reads journal names from a text file, one per line. Blank
// lines and lines starting with # are skipped, and whitespace is trimmed.
func LoadFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal list: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading journal list: %w", err)
	}
	return names, nil
}
