// Package bruteforce answers neighbourhood queries by scanning every point.
package bruteforce
