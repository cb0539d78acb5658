// Package viz renders tensegrity structures as braille-dot line art
// for the terminal. Two-dimensional structures draw directly, 3D
// structures project obliquely, and surface-wrapped structures are
// lifted back onto their cylinder before projection so hoops render
// as curves instead of straight lines.
package viz
