// Package strategy defines the routing strategy interface and implements the
// four routing policies:
//
//   - Round Robin: cycles through the healthy backends with a shared cursor
//   - Least Connections: routes to the backend with fewest in-flight requests,
//     ties going to the earliest declared backend
//   - Content Based: routes video/, api/ and image/ paths to backends with the
//     matching affinity, least loaded first, falling back to round robin
//   - File Size: routes large downloads (.mp4, .mkv, .avi, .zip, .iso and
//     video/ paths) by least connections, everything else by round robin
//
// Strategies only ever see the healthy backends; filtering is done by the
// caller.
package strategy
