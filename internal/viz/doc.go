// Package viz renders analysis results in the terminal.
//
// [Canvas] is a braille dot grid; [Plot] draws phase portraits, Poincaré
// sections, bifurcation diagrams, cobwebs and return maps on it, and line
// charts with asciigraph. [Live] is a Bubble Tea model that animates a
// system while its parameters are tuned from the keyboard.
package viz
