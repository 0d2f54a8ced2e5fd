// Package render rasterizes STL and OBJ meshes into JPEG thumbnails.
//
// The renderer is a small software z-buffer: the mesh is centered and scaled
// to a unit box, viewed from an isometric-style camera at distance 2.5 and
// lit by a white key light at the camera plus a bluish fill light behind the
// model. Colour and depth buffers are pooled and returned on every path.
package render
