// Package integration contains the ERP integration bounded context.
// The ERP is the source of truth for products, the shop for orders.
//
// Key concepts:
//   - ERPClient: Port for the ERP product listing and order intake API
//   - Payload: Schema-less product record as delivered by the ERP
//   - OrderPayload: Order document accepted by the ERP
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
