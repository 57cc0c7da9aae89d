package contracts

// Deployed escrow factory addresses, one per dashboard variant.
const (
	EscrowTabsAddress    = "0x0325e03db2baA3EDDE0417876333B35e6d467D35"
	EscrowStackedAddress = "0x8AA7b369C40d77299D617A72d4a524Ea876Dad86"
)

// EscrowABI is the subset of the escrow factory interface the dashboard consumes.
const EscrowABI = `[
  {
    "type": "function",
    "name": "escrowCount",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "escrows",
    "stateMutability": "view",
    "inputs": [{"name": "", "type": "uint256"}],
    "outputs": [
      {"name": "payer", "type": "address"},
      {"name": "payee", "type": "address"},
      {"name": "totalAmount", "type": "uint256"},
      {"name": "deadline", "type": "uint256"},
      {"name": "isActive", "type": "bool"},
      {"name": "completed", "type": "bool"},
      {"name": "releasedAmount", "type": "uint256"}
    ]
  },
  {
    "type": "function",
    "name": "getEscrowSteps",
    "stateMutability": "view",
    "inputs": [{"name": "_escrowId", "type": "uint256"}],
    "outputs": [
      {"name": "", "type": "uint256[]"},
      {"name": "", "type": "bool[]"}
    ]
  },
  {
    "type": "function",
    "name": "createEscrow",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_payer", "type": "address"},
      {"name": "_payee", "type": "address"},
      {"name": "_totalAmount", "type": "uint256"},
      {"name": "_deadlineInDays", "type": "uint256"},
      {"name": "_stepAmounts", "type": "uint256[]"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "fundEscrow",
    "stateMutability": "payable",
    "inputs": [{"name": "_escrowId", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "approveStep",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_escrowId", "type": "uint256"},
      {"name": "_stepIndex", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "releaseFunds",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "_escrowId", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "withdrawFunds",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "_escrowId", "type": "uint256"}],
    "outputs": []
  }
]`
