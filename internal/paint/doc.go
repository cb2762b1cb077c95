// Package paint implements a pixel-grid painting engine that draws through a
// single compositing layer: every painted cell becomes one point shadow in a
// box-shadow list instead of a pixel in a bitmap.
//
// An Engine owns a Grid, maps pointer coordinates to cells, runs the
// Idle/Painting session machine and hands a fresh Description to its
// Renderer after every change. Pointer input, page layout and the actual
// drawing belong to collaborators (PointerSource, Geometry, Renderer), so the
// same engine backs the websocket surfaces and the terminal client.
//
// Vertical bounds are checked as y < GridHeight, the same as the horizontal
// axis.
package paint
