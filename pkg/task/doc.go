/*
Package task provides the task base type, the shipped tasks and Aggregated.

A task is the objective ||A x - lambda*b||_W. Base holds A, b, the weight, the
gain lambda and the handles of the attached constraints. Concrete tasks embed
*Base and recompute A and b in Update before updating their constraints.

Aggregated stacks several tasks into one level: its A is the vertical stack of
the sub-task matrices, its b the concatenation of the scaled sub-task residuals
and its weight the block diagonal of the sub-task weights.
*/
package task
