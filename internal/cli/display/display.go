// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"fmt"
	"strings"

	"github.com/caravel-sh/caravel"
)

func combineBanners(bannerBlue, bannerGold string) string {
	linesBlue := strings.Split(bannerBlue, "\n")
	linesGold := strings.Split(bannerGold, "\n")
	maxLines := max(len(linesGold), len(linesBlue))

	var combinedLines []string
	for i := range maxLines {
		line1 := ""
		if i < len(linesBlue) {
			line1 = LightBlue(linesBlue[i])
		}

		line2 := ""
		if i < len(linesGold) {
			line2 = Gold(linesGold[i])
		}

		combinedLines = append(combinedLines, line1+line2)
	}

	return strings.Join(combinedLines, "\n")
}

var banner = combineBanners(LightBlue(BannerBlue), Gold(BannerGold))

func PrintBanner() {
	fmt.Println(strings.Replace(banner, "version", caravel.Version, 1))
}

// Phase prints a workflow phase header of the form "[2/5] Stack reconciliation".
func Phase(index, total int, name string) {
	fmt.Printf("\n%s %s\n", Gold(fmt.Sprintf("[%d/%d]", index, total)), name)
}

// Step prints a per-step progress marker under the current phase header.
func Step(msg string) {
	fmt.Printf("  %s %s\n", Grey("-"), msg)
}

// StepDone prints a per-step success marker.
func StepDone(msg string) {
	fmt.Printf("  %s %s\n", Green("✓"), msg)
}

// StepFail prints a per-step failure marker.
func StepFail(msg string) {
	fmt.Printf("  %s %s\n", Red("✗"), msg)
}

func Success(msg string) {
	fmt.Print(Green(fmt.Sprintf("%s\n", msg)))
}

func Warning(msg string) {
	fmt.Print(Gold(fmt.Sprintf("Warning: %s\n", msg)))
}

func Error(msg string) {
	fmt.Print(Red(fmt.Sprintf("Error: %s\n", msg)))
}

func FailureBanner(msg string) {
	fmt.Printf("\n%s\n%s\n", Red("──────────── DEPLOYMENT FAILED ────────────"), msg)
}

func DefaultLinks() string {
	return Links("Docs", "")
}

func Links(docLinkName string, deepLinkName string) string {
	deepLink := DocRoot
	if deepLinkName != "" {
		deepLink += "/" + deepLinkName
	}

	return "\n" + Gold("Code: ") + "https://github.com/caravel-sh/caravel" +
		"\n" + Gold(fmt.Sprintf("%s: ", docLinkName)) + deepLink +
		"\n" + Gold("Bugs: ") + "https://github.com/caravel-sh/caravel/issues"
}
