// Package services holds cross-cutting helpers shared by external-capability
// clients: the error classification taxonomy and context annotation utilities.
package services
