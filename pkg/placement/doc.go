// Package placement computes display positions for inscriptions and motifs.
//
// Every element goes through the same steps:
//
//  1. raw coordinates are normalized to logical frame units (divided by the
//     device pixel ratio for physical records, converted from millimeters
//     for millimeter records)
//  2. font sizes and motif sizes are normalized the same way; legacy motifs
//     sized in millimeters use the frame-to-headstone height ratio
//  3. legacy X values written with the height ratio instead of the width
//     ratio are reconciled
//  4. surname lines and high motifs are snapped below the stone's curved
//     top edge when a silhouette profile is available
//  5. the center-origin frame coordinate is mapped to display pixels
//
// Steps 3 and 4 are heuristics for untagged legacy data. Both are
// deterministic and neither ever drops an element.
package placement
