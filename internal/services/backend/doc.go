// Package backend is a small PostgREST client for the hosted backend.
//
// Every table is a Resource registered on the route table at construction.
// Select, Insert, and Update are generic over the row type and return an
// apiclient.Result; typed helpers for the users, analytics, and logs tables
// sit on top of them.
package backend
