// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides reverse and reverse-complement operations on
// ASCII base and quality strings.  Byte reversal is delegated to
// base/simd.
package biosimd
