//go:build amd64 || arm64 || loong64 || mips64 || mips64le || ppc64 || ppc64le || riscv64 || s390x

package runtime

// reservationBytes is the fixed size of every memory's reserved range:
// large enough that a 32-bit index plus a 32-bit offset always resolves
// inside it. One guard page is reserved beyond it and never committed.
//
// The reservation exceeds a 32-bit address space, so the package only
// builds on 64-bit platforms; there is no 32-bit variant of this file.
const reservationBytes = 1 << 33
