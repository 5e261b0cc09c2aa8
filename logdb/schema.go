// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

const eventTableSchema = `
CREATE TABLE IF NOT EXISTS event (
	invocationID TEXT NOT NULL,
	eventIndex INTEGER NOT NULL,
	blockNumber INTEGER NOT NULL,
	contract BLOB NOT NULL,
	name TEXT NOT NULL,
	subject BLOB NOT NULL,
	data TEXT,
	PRIMARY KEY (invocationID, eventIndex)
);

CREATE INDEX IF NOT EXISTS eventBlockIndex ON event(blockNumber);
CREATE INDEX IF NOT EXISTS eventContractIndex ON event(contract, name);
CREATE INDEX IF NOT EXISTS eventSubjectIndex ON event(subject);
`

const transferTableSchema = `
CREATE TABLE IF NOT EXISTS transfer (
	invocationID TEXT NOT NULL,
	transferIndex INTEGER NOT NULL,
	blockNumber INTEGER NOT NULL,
	sender BLOB NOT NULL,
	recipient BLOB NOT NULL,
	asset TEXT NOT NULL,
	amount TEXT NOT NULL,
	PRIMARY KEY (invocationID, transferIndex)
);

CREATE INDEX IF NOT EXISTS transferBlockIndex ON transfer(blockNumber);
CREATE INDEX IF NOT EXISTS transferSenderIndex ON transfer(sender);
CREATE INDEX IF NOT EXISTS transferRecipientIndex ON transfer(recipient);
`
