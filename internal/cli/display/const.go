// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package display

const (
	Tool       = "caravel"
	BannerBlue = `
                                              oo
  oooo0o   ooooo   o0oo0o  ooooo  oo   oo  o0ooo0o
 oo       oo   oo  oo     oo   oo oo   oo  oo    oo
 oo       oo   oo  oo     oo   oo  oo oo   oo    oo
  oo000o   ooo0oo  oo      ooo0oo   o0o    oo0000o
`
	BannerGold = `
   o0o
  oo 0o
  oo 0o
   o0o      vversion
`
	DocRoot = "https://docs.caravel.sh/en/latest"
)
